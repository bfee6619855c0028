package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventkernel/drivers/pci"
	"eventkernel/platform/host"
)

var memmapCmd = &cobra.Command{
	Use:   "memmap",
	Short: "Print the boot memory map and the heaps built from it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		regions := cfg.Memory.Regions
		for _, s := range regions {
			fmt.Fprintln(out, s)
		}
		fmt.Fprintf(out, "total: %d MiB in %d regions\n", regions.TotalMiB(), len(regions))

		a := host.New(cfg, logger, nil).Allocator()
		a.AddMap(regions)
		st := a.Stats()
		for _, h := range st.Heaps {
			fmt.Fprintf(out, "heap %2d: %#016x %d KiB\n", h.Slot, h.Bottom, h.Size/1024)
		}
		return nil
	},
}

var lspciCmd = &cobra.Command{
	Use:   "lspci",
	Short: "List the devices on the simulated PCI bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := host.New(cfg, logger, nil)
		for _, f := range pci.Identify(pci.Scan(p.PCI()), p.Drivers()) {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}
