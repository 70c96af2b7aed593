package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
)

// protocolsCmd represents the protocols command
var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List supported device protocol families",
	Long: `List every protocol family this tool can drive, with the device-native
intensity scale, motor count, keepalive requirement, and the advertised
names that identify the family during a scan.`,
	Args: cobra.NoArgs,
	RunE: runProtocols,
}

func runProtocols(cmd *cobra.Command, args []string) error {
	return displayProtocols(cmd.OutOrStdout())
}

func displayProtocols(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMAX LEVEL\tMOTORS\tKEEPALIVE\tMATCHES")

	for _, def := range protocol.AllDefinitions() {
		p := def.New()

		keepalive := "-"
		if v := p.KeepaliveInterval(); v > 0 {
			keepalive = v.String()
		}

		matches := strings.Join(def.NamePrefixes, ", ")
		if len(matches) > 40 {
			matches = matches[:37] + "..."
		}

		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			def.ID, p.MaxIntensity(), p.MotorCount(), keepalive, matches)
	}

	return w.Flush()
}
