package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/presets"
)

var (
	volume     float64
	minutes    int64
	patient    string
	medication string
	asJSON     bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a dose, from --volume and --minutes or from --patient and --medication presets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := doseRequest(cmd)
		if err != nil {
			return err
		}

		err = newClient(cmd).Start(cmd.Context(), req)
		if err != nil {
			return err
		}

		cmd.Printf("dosing %.2f mL over %d min\n", req.VolumeML, req.DurationMinutes)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop dosing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return newClient(cmd).Stop(cmd.Context())
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Leave calibration and return to the volume page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return newClient(cmd).Reset(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the pump's status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newClient(cmd).Status(cmd.Context())
		if err != nil {
			return err
		}

		if asJSON {
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		}

		cmd.Println(ivadmin.FormatStatus(s))
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the dose of every medication for every patient",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := presets.Load(cfg.PresetsFile)
		if err != nil {
			return err
		}

		for _, pt := range p.Patients {
			for _, m := range p.Medications {
				req := m.Request(pt)
				cmd.Printf("%s (%g kg)\t%s\t%.2f mL\t%d min\n", pt.Name, pt.MassKG, m.Name, req.VolumeML, req.DurationMinutes)
			}
		}
		return nil
	},
}

func doseRequest(cmd *cobra.Command) (ivadmin.DosingRequest, error) {
	usingPresets := patient != "" || medication != ""
	usingValues := cmd.Flags().Changed("volume") || cmd.Flags().Changed("minutes")

	switch {
	case usingPresets && usingValues:
		return ivadmin.DosingRequest{}, errors.New("use either --volume and --minutes or --patient and --medication")
	case usingPresets:
		p, err := presets.Load(cfg.PresetsFile)
		if err != nil {
			return ivadmin.DosingRequest{}, err
		}
		return p.Request(patient, medication)
	default:
		req := ivadmin.DosingRequest{VolumeML: volume, DurationMinutes: minutes}
		err := req.Validate()
		if err != nil {
			return ivadmin.DosingRequest{}, fmt.Errorf("invalid dose: %w", err)
		}
		return req, nil
	}
}

func init() {
	startCmd.Flags().Float64Var(&volume, "volume", 0, "volume to deliver in mL")
	startCmd.Flags().Int64Var(&minutes, "minutes", 0, "time to deliver it over")
	startCmd.Flags().StringVar(&patient, "patient", "", "patient preset")
	startCmd.Flags().StringVar(&medication, "medication", "", "medication preset")
	statusCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	addServerFlag(startCmd, stopCmd, resetCmd, statusCmd)
	rootCmd.AddCommand(startCmd, stopCmd, resetCmd, statusCmd, presetsCmd)
}
