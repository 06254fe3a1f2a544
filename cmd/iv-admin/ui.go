package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/TheBlueOompaLoompa/iv-admin/client"
	"github.com/TheBlueOompaLoompa/iv-admin/controller"
	"github.com/TheBlueOompaLoompa/iv-admin/presets"
	"github.com/TheBlueOompaLoompa/iv-admin/ui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the desktop console",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		application := app.NewWithID("com.github.theblueoompaloompa.iv-admin")

		configWindow := ui.NewConfigWindow(application)
		configWindow.OnSubmit = func(c controller.Config) {
			p, err := presets.Load(c.PresetsFile)
			if err != nil {
				window := application.NewWindow("IV Admin")
				window.Show()
				ui.ShowError(application, window, fmt.Errorf("error loading presets: %w", err))
				return
			}

			ui.NewPumpUI(application, client.New(c.ServerAddr), p, logger).Show(ctx)
		}
		configWindow.Show(&cfg)

		closed := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				fyne.Do(func() {
					application.Quit()
				})
			case <-closed:
			}
		}()

		application.Run()
		close(closed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
