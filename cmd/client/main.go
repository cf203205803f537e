// cmd/client is the kvcli CLI entry-point built with Cobra.
//
// Usage:
//
//	kvcli set mykey "hello world"  --server http://localhost:8080
//	kvcli get mykey                --server http://localhost:8080
//	kvcli delete mykey             --server http://localhost:8080
//	kvcli search "hello"           --server http://localhost:8080
//	kvcli status                   --server http://localhost:8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"durablekv/internal/client"
)

var (
	serverAddr string
	timeout    time.Duration
	debugFlaky float64
)

func main() {
	root := &cobra.Command{
		Use:   "kvcli",
		Short: "CLI client for the durable key-value store",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8080", "KV store server address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(getCmd(), setCmd(), deleteCmd(), bulkSetCmd(), searchCmd(), searchSimilarCmd(), statusCmd(), promoteCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			value, err := c.Get(context.Background(), args[0])
			if err == client.ErrNotFound {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			prettyPrint(value)
			return nil
		},
	}
}

func setCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			return c.Set(context.Background(), args[0], args[1], debugFlaky)
		},
	}
	cmd.Flags().Float64Var(&debugFlaky, "debug-flaky", 0, "probability of simulating a post-fsync crash (testing only)")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.Delete(context.Background(), args[0], 0); err != nil {
				return err
			}
			fmt.Printf("deleted %q\n", args[0])
			return nil
		},
	}
}

func bulkSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-set <key1> <value1> [<key2> <value2> ...]",
		Short: "Store multiple key-value pairs atomically",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args)%2 != 0 {
				return fmt.Errorf("bulk-set requires an even number of key/value arguments")
			}
			items := make([]client.BulkSetItem, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				items = append(items, client.BulkSetItem{Key: args[i], Value: args[i+1]})
			}
			c := client.New(serverAddr, timeout)
			return c.BulkSet(context.Background(), items, 0)
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over indexed values (server must run with --index)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			keys, err := c.Search(context.Background(), args[0])
			if err != nil {
				return err
			}
			prettyPrint(keys)
			return nil
		},
	}
}

func searchSimilarCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search-similar <query>",
		Short: "Similarity search over indexed values (server must run with --index)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			results, err := c.SearchSimilar(context.Background(), args[0], topK)
			if err != nil {
				return err
			}
			prettyPrint(results)
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 10, "maximum number of results")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the node's current role",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			st, err := c.Status(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(st)
			return nil
		},
	}
}

func promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Promote this node to primary",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.Promote(context.Background()); err != nil {
				return err
			}
			fmt.Println("promoted to primary")
			return nil
		},
	}
}

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
