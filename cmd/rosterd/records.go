package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rosterd/internal/client"
	"github.com/obsidianstack/rosterd/internal/config"
)

var defaultServerURL = fmt.Sprintf("http://%s:%d", config.DefaultListenAddr, config.DefaultHTTPPort)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every record on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := newClient(cmd).List(cmd.Context())
		if err != nil {
			return err
		}

		names := make([]string, 0, len(records))
		for name := range records {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tBRANCH")
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%s\n", name, records[name])
		}
		return tw.Flush()
	},
}

var putCmd = &cobra.Command{
	Use:   "put NAME BRANCH",
	Short: "Create a record or replace its branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(cmd)
		upsert := c.Upsert
		if replace, _ := cmd.Flags().GetBool("replace"); replace {
			upsert = c.Replace
		}
		msg, err := upsert(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Remove a record (succeeds if it does not exist)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient(cmd).Remove(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{listCmd, putCmd, deleteCmd} {
		c.Flags().String("server", defaultServerURL, "base URL of the rosterd server")
		c.Flags().String("prefix", config.DefaultRoutePrefix, "record route prefix on the server")
		rootCmd.AddCommand(c)
	}
	putCmd.Flags().Bool("replace", false, "send PUT instead of POST")
}

func newClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	prefix, _ := cmd.Flags().GetString("prefix")
	return client.New(server, client.WithPrefix(prefix))
}
