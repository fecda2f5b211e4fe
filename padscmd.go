package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loopvox/loopvox/pads"
)

var padsCmd = &cobra.Command{
	Use:   "pads",
	Short: "List available MIDI pad input ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := pads.ListInputs()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("no MIDI inputs found")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}
