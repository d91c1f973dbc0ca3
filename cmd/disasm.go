package cmd

import (
	"fmt"
	"os"

	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm `path/ROM`",
	Short: "print an assembly listing of a ROM",
	Args:  cobra.ExactArgs(1),
	RunE:  Disasm,
}

// chyp8 disasm 'path/to/ROM'
func Disasm(cmd *cobra.Command, args []string) error {
	rom, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}
	if len(rom) == 0 {
		return cpu.ErrEmptyProgram
	}

	out := cmd.OutOrStdout()
	for _, line := range cpu.Disassemble(rom) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(disasmCmd)
}
