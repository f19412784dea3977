package main

import (
	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"

	"github.com/vertti/sshprobe/pkg/predicate"
)

var (
	sqlDB string
	sqlGT int64
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Check that a psql query returns an integer above a threshold",
	Long: "Run a query through psql on the remote host and pass when its single value is an integer\n" +
		"greater than --gt. A value that is not an integer is an error, not a failure.",
	Example: `  sshprobe sql "select count(*) from jobs where state = 'queued'" --db app`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSQLProbe,
}

func init() {
	sqlCmd.Flags().StringVar(&sqlDB, "db", "", "database name passed to psql")
	sqlCmd.Flags().Int64Var(&sqlGT, "gt", 0, "pass when the value is greater than this")
	_ = sqlCmd.MarkFlagRequired("db")
	rootCmd.AddCommand(sqlCmd)
}

func runSQLProbe(cmd *cobra.Command, args []string) error {
	return runProbe(cmd, probeSpec{
		name:      "sql:" + sqlDB,
		command:   sqlCommand(args[0], sqlDB),
		predicate: predicate.NumericGreaterThan(sqlGT),
	})
}

// sqlCommand pipes query through psql in tuples-only mode and xargs to trim
// the padding psql puts around the value.
func sqlCommand(query, db string) string {
	return "echo " + shellescape.Quote(query) + " | psql -t " + shellescape.Quote(db) + " | xargs"
}
