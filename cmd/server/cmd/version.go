package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, overridden with -ldflags "-X .../cmd.Version=..." in release builds.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version number, git commit, build date, and Go runtime version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if short {
				_, err := fmt.Fprintln(out, Version)
				return err
			}

			rows := [][2]string{
				{"Version:", Version},
				{"Git commit:", GitCommit},
				{"Build date:", BuildDate},
				{"Go version:", runtime.Version()},
				{"Platform:", runtime.GOOS + "/" + runtime.GOARCH},
			}
			if _, err := fmt.Fprintln(out, "Social Events Server"); err != nil {
				return err
			}
			for _, row := range rows {
				if _, err := fmt.Fprintf(out, "%-12s%s\n", row[0], row[1]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}
