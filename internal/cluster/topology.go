package cluster

// MasterlessPeers returns, for each endpoint in endpoints, the list of the
// other endpoints — the peer set a masterless node replicates to when
// every node in the group runs as its own primary (spec.md's masterless
// topology: no elections, no single primary, last-write-wins on overlap).
func MasterlessPeers(endpoints []string) map[string][]string {
	peers := make(map[string][]string, len(endpoints))
	for i, self := range endpoints {
		others := make([]string, 0, len(endpoints)-1)
		for j, other := range endpoints {
			if j != i {
				others = append(others, other)
			}
		}
		peers[self] = others
	}
	return peers
}
