package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hsbatt/hsbatt/pkg/headset"
)

func NewDevicesCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:         "devices",
		Short:       "List the HID interfaces of the headset",
		GroupID:     gAdvanced,
		Annotations: map[string]string{annotationNoDaemon: "true"},
		Long: `List the HID interfaces of the headset dongle, marking the one the daemon would open.

This reads the USB bus directly and does not need the daemon.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var vid, pid uint16 = headset.VendorID, headset.ProductID
			if all {
				vid, pid = 0, 0
			}

			ifaces, err := headset.Enumerate(vid, pid)
			if err != nil {
				return fmt.Errorf("failed to enumerate HID devices: %w", err)
			}

			printDevices(cmd.OutOrStdout(), ifaces, !all)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every HID interface, not just the headset")

	return cmd
}

// printDevices lists ifaces. With markSelected, the interface the daemon
// would open is starred.
func printDevices(w io.Writer, ifaces []headset.Interface, markSelected bool) {
	if len(ifaces) == 0 {
		fmt.Fprintln(w, "No matching HID interfaces found.")
		return
	}

	selected, ok := headset.SelectInterface(ifaces)
	ok = ok && markSelected

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tINTERFACE\tUSAGE\tPRODUCT\tPATH")
	for _, i := range ifaces {
		mark := ""
		if ok && i.Path == selected.Path {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%04x:%04x\t%d\t%04x:%04x\t%s\t%s\n",
			mark, i.VendorID, i.ProductID, i.Number, i.UsagePage, i.Usage, i.Product, i.Path)
	}
	_ = tw.Flush()
}
