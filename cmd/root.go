package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"tims/internal/config"
	"tims/internal/events"
	"tims/internal/tui"
	"tims/internal/work"
)

var rootCmd = &cobra.Command{
	Use:   "tims",
	Short: "Time and invoice management from the terminal",
	Long: `A CLI client for the tims REST backend.
Track work against clients, projects and tasks, and look up invoices,
payments and balances.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.ConfigExists() {
			fmt.Println("Config file not found")
			fmt.Println("USAGE:")
			fmt.Println("Make sure you have the config file by running.")
			fmt.Println("tims init")
			return nil
		}
		return withSession(runMenu)(cmd, args)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize config file",
	Long:  `Generate a default tims.yaml config file in the current directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.ConfigExists() {
			fmt.Println("Config file already exists.")
			return nil
		}
		if err := config.WriteDefault(config.ConfigFileName); err != nil {
			return err
		}
		fmt.Printf("✅ Created %s\n", config.GetConfigPath())
		fmt.Println("💡 Set TIMS_REST_DOMAIN and TIMS_COOKIE_DOMAIN in the environment or a .env file next to it")
		return nil
	},
}

// menu actions
const (
	actionStatus   = "Work status"
	actionStart    = "Start work"
	actionEnd      = "End work"
	actionElapsed  = "Elapsed time"
	actionPrevious = "Previous work"
	actionOwes     = "Balance"
	actionSignout  = "Sign out"
	actionExit     = "Exit"
)

// runMenu loops over the main menu until the user exits, signs out or the
// context is cancelled.
func runMenu(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	signedOut := make(chan struct{}, 1)
	sub := a.hub.SignedOut().Subscribe(func(events.SignedOutEvent) {
		select {
		case signedOut <- struct{}{}:
		default:
		}
	})
	defer sub.Unsubscribe()

	svc := work.NewService(a.rest)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("⏹ Cancelled")
			return nil
		case <-signedOut:
			events.GlobalBus.Publish(events.EventShutdownRequested, "signed out")
			return nil
		default:
		}

		items := []string{actionStatus, actionStart, actionEnd, actionElapsed, actionPrevious, actionOwes, actionSignout, actionExit}

		a.printer.Suspend()
		prompt := promptui.Select{
			Label: a.cfg.SiteName.Long,
			Items: items,
			Size:  len(items),
		}
		_, choice, err := prompt.Run()
		a.printer.Resume()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}

		switch choice {
		case actionStatus:
			err = showStatus(ctx, a, svc)
		case actionStart:
			err = startWork(ctx, a, svc, startFlags{})
		case actionEnd:
			err = endWork(ctx, a, svc, "", false)
		case actionElapsed:
			err = showElapsed(ctx, a, svc, "")
		case actionPrevious:
			err = showPrevious(ctx, a, svc, work.PrevOptions{})
		case actionOwes:
			err = showOwes(ctx, a)
		case actionSignout:
			return signout(ctx, a)
		case actionExit:
			return nil
		}
		if err != nil && !errors.Is(err, errSilent) && !errors.Is(err, tui.ErrCancelled) {
			a.hub.Error().Trigger(err.Error())
		}
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(signinCmd, signoutCmd, whoamiCmd)
	rootCmd.AddCommand(newWorkCmd())
	rootCmd.AddCommand(clientsCmd, newProjectsCmd(), newTasksCmd())
	rootCmd.AddCommand(newInvoicesCmd(), newPaymentsCmd(), owesCmd)
}

func Execute() {
	os.Exit(ExitCode(rootCmd.Execute()))
}

// ExecuteContext allows running the root command with a supplied context for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
