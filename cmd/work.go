package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"tims/internal/localstore"
	"tims/internal/rest"
	"tims/internal/tui"
	"tims/internal/util"
	"tims/internal/work"
)

// elapsedRefresh is how often `work elapsed --watch` asks again.
const elapsedRefresh = 5 * time.Minute

type startFlags struct {
	client      string
	project     string
	task        string
	description string
}

func newWorkCmd() *cobra.Command {
	workCmd := &cobra.Command{
		Use:   "work",
		Short: "Start, end and inspect work",
	}

	var sf startFlags
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start work on a task",
		Long: `Start work on a task. Client, project and task default to the last
ones used; without flags on a terminal they are picked from menus.`,
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			return startWork(ctx, a, work.NewService(a.rest), sf)
		}),
	}
	startCmd.Flags().StringVarP(&sf.client, "client", "c", "", "client id")
	startCmd.Flags().StringVarP(&sf.project, "project", "p", "", "project id")
	startCmd.Flags().StringVarP(&sf.task, "task", "t", "", "task id")
	startCmd.Flags().StringVarP(&sf.description, "description", "d", "", "what the work is about")

	var endDescription string
	endCmd := &cobra.Command{
		Use:   "end",
		Short: "End the open work",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			return endWork(ctx, a, work.NewService(a.rest), endDescription, cmd.Flags().Changed("description"))
		}),
	}
	endCmd.Flags().StringVarP(&endDescription, "description", "d", "", "description stored on the work")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the open work",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			return showStatus(ctx, a, work.NewService(a.rest))
		}),
	}

	var watch bool
	elapsedCmd := &cobra.Command{
		Use:       "elapsed [day|week|month]",
		Short:     "Show time worked this day, week or month",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(work.Day), string(work.Week), string(work.Month)},
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			period := ""
			if len(args) == 1 {
				period = args[0]
			}
			svc := work.NewService(a.rest)
			if err := showElapsed(ctx, a, svc, period); err != nil || !watch {
				return err
			}
			t := time.NewTicker(elapsedRefresh)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					if err := showElapsed(ctx, a, svc, period); err != nil {
						return err
					}
				}
			}
		}),
	}
	elapsedCmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh every 5 minutes")

	var prev work.PrevOptions
	var prevType string
	prevCmd := &cobra.Command{
		Use:   "prev",
		Short: "List distinct work done recently",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			prev.Type = work.Period(prevType)
			return showPrevious(ctx, a, work.NewService(a.rest), prev)
		}),
	}
	prevCmd.Flags().IntVarP(&prev.Count, "count", "n", 0, "how many days or weeks back (1-30)")
	prevCmd.Flags().StringVarP(&prevType, "type", "t", "", "day or week")

	var resumeDescription string
	resumeCmd := &cobra.Command{
		Use:   "resume [n]",
		Short: "Start again on something from the previous work list",
		Long: `Start work on entry n (1 based) of the previous work list, or pick it
from a menu. Open work is ended first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			pick := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid entry %q", args[0])
				}
				pick = n
			}
			return resumeWork(ctx, a, work.NewService(a.rest), pick, resumeDescription)
		}),
	}
	resumeCmd.Flags().StringVarP(&resumeDescription, "description", "d", "", "what the work is about")

	workCmd.AddCommand(startCmd, endCmd, statusCmd, elapsedCmd, prevCmd, resumeCmd)
	return workCmd
}

func interactive() bool { return util.IsTerminal(int(os.Stdin.Fd())) }

// choose asks the user to pick one of options unless there is no terminal
// or a single option, in which case the current choice stands.
func choose(a *app, title string, options []tui.Option, current string) (string, error) {
	if !interactive() || len(options) < 2 {
		return current, nil
	}
	a.printer.Suspend()
	defer a.printer.Resume()
	o, err := tui.Select(title, options, current)
	if err != nil {
		return "", err
	}
	return o.ID, nil
}

func promptText(a *app, label, def string) (string, error) {
	if !interactive() {
		return def, nil
	}
	a.printer.Suspend()
	defer a.printer.Resume()
	p := promptui.Prompt{Label: label, Default: def, AllowEdit: true}
	s, err := p.Run()
	if errors.Is(err, promptui.ErrInterrupt) {
		return "", tui.ErrCancelled
	}
	return strings.TrimSpace(s), err
}

func startedHandlers(a *app) rest.Handlers {
	return rest.Handlers{
		rest.CodeTaskAlreadyStarted: func(*rest.ServiceError) error {
			a.hub.Warning().Trigger("Work has already been started. End it first with 'tims work end'")
			return errSilent
		},
	}
}

func startWork(ctx context.Context, a *app, svc *work.Service, f startFlags) error {
	clients, err := svc.Clients(ctx)
	if err != nil {
		return a.settle(err, nil)
	}
	if len(clients) == 0 {
		a.hub.Warning().Trigger("No clients to work for")
		return nil
	}

	sel := work.NewSelector(svc, a.store, work.Last, clients)
	if err := sel.Resolve(ctx); err != nil {
		return a.settle(err, nil)
	}

	client := f.client
	if client == "" {
		opts := make([]tui.Option, 0, len(clients))
		for _, c := range clients {
			opts = append(opts, tui.Option{ID: c.ID, Label: c.Name})
		}
		if client, err = choose(a, "Client", opts, sel.Selection().Client); err != nil {
			return err
		}
	}
	if err := sel.SelectClient(ctx, client); err != nil {
		return a.settle(err, nil)
	}

	project := f.project
	if project == "" {
		projects, err := svc.Projects(ctx, sel.Selection().Client)
		if err != nil {
			return a.settle(err, nil)
		}
		opts := make([]tui.Option, 0, len(projects))
		for _, p := range projects {
			opts = append(opts, tui.Option{ID: p.ID, Label: p.Name})
		}
		if project, err = choose(a, "Project", opts, sel.Selection().Project); err != nil {
			return err
		}
	}
	if err := sel.SelectProject(ctx, project); err != nil {
		return a.settle(err, nil)
	}

	task := f.task
	if task == "" && sel.Selection().Project != "" {
		tasks, err := svc.Tasks(ctx, sel.Selection().Project)
		if err != nil {
			return a.settle(err, nil)
		}
		opts := make([]tui.Option, 0, len(tasks))
		for _, t := range tasks {
			opts = append(opts, tui.Option{ID: t.ID, Label: t.Name})
		}
		if task, err = choose(a, "Task", opts, sel.Selection().Task); err != nil {
			return err
		}
	}
	if err := sel.SelectTask(task); err != nil {
		return err
	}

	description := f.description
	if description == "" {
		if description, err = promptText(a, "Description (optional)", ""); err != nil {
			return err
		}
	}

	if _, err := sel.Start(ctx, description); err != nil {
		if errors.Is(err, work.ErrNoTask) {
			return err
		}
		return a.settle(err, startedHandlers(a))
	}
	a.hub.Success().Trigger("Work started")
	return nil
}

func endWork(ctx context.Context, a *app, svc *work.Service, description string, haveDescription bool) error {
	cur, err := svc.Current(ctx)
	if err != nil {
		return a.settle(err, nil)
	}
	if cur == nil {
		a.hub.Info().Trigger("No work in progress")
		return nil
	}
	if !haveDescription {
		if description, err = promptText(a, "Description", cur.Description); err != nil {
			return err
		}
	}
	end, err := svc.End(ctx, cur.ID, description)
	if err != nil {
		return a.settle(err, nil)
	}
	took := end.Sub(time.Unix(cur.Start, 0))
	a.hub.Success().Trigger(fmt.Sprintf("Work on %s ended after %s", cur.TaskName, work.FormatElapsed(took)))
	return nil
}

func showStatus(ctx context.Context, a *app, svc *work.Service) error {
	cur, err := svc.Current(ctx)
	if err != nil {
		return a.settle(err, nil)
	}
	if cur == nil {
		a.hub.Info().Trigger("No work in progress")
		return nil
	}
	started := time.Unix(cur.Start, 0)
	a.printer.Printf("%s / %s / %s\n", cur.ClientName, cur.ProjectName, cur.TaskName)
	a.printer.Printf("Started %s (%s ago)\n", started.Format("15:04"), work.FormatElapsed(time.Since(started)))
	if cur.Description != "" {
		a.printer.Println(cur.Description)
	}
	return nil
}

func showElapsed(ctx context.Context, a *app, svc *work.Service, period string) error {
	if period == "" {
		period = a.store.String(localstore.KeyElapsedType, string(work.Day))
	}
	p, err := work.ParsePeriod(period)
	if err != nil {
		return err
	}
	if _, err := a.store.SetString(localstore.KeyElapsedType, string(p)); err != nil {
		log.Warnw("failed to remember elapsed type", "err", err)
	}

	d, err := svc.Elapsed(ctx, p)
	if err != nil {
		return a.settle(err, nil)
	}
	a.printer.Printf("Elapsed this %s: %s\n", p, work.FormatElapsed(d))
	return nil
}

// prevOptions merges the flags into the remembered list options and stores
// the result.
func prevOptions(a *app, opts work.PrevOptions) (work.PrevOptions, error) {
	stored := work.DefaultPrevOptions
	if _, err := a.store.JSON(localstore.KeyPrevList, &stored); err != nil {
		log.Warnw("ignoring stored previous list options", "err", err)
		stored = work.DefaultPrevOptions
	}
	if opts.Count != 0 {
		stored.Count = opts.Count
	}
	if opts.Type != "" {
		stored.Type = opts.Type
	}
	if err := stored.Validate(); err != nil {
		return stored, err
	}
	if err := a.store.SetJSON(localstore.KeyPrevList, stored); err != nil {
		log.Warnw("failed to remember previous list options", "err", err)
	}
	return stored, nil
}

func previous(ctx context.Context, a *app, svc *work.Service, opts work.PrevOptions) ([]work.Work, *work.Work, error) {
	opts, err := prevOptions(a, opts)
	if err != nil {
		return nil, nil, err
	}
	cur, err := svc.Current(ctx)
	if err != nil {
		return nil, nil, a.settle(err, nil)
	}
	list, err := svc.Previous(ctx, opts, cur)
	if err != nil {
		return nil, nil, a.settle(err, nil)
	}
	return list, cur, nil
}

func showPrevious(ctx context.Context, a *app, svc *work.Service, opts work.PrevOptions) error {
	list, _, err := previous(ctx, a, svc, opts)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list))
	for i, w := range list {
		rows = append(rows, []string{strconv.Itoa(i + 1), w.ClientName, w.ProjectName, w.TaskName, formatTime(w.Start)})
	}
	printTable(a.printer, []string{"#", "Client", "Project", "Task", "Started"}, rows)
	return nil
}

func resumeWork(ctx context.Context, a *app, svc *work.Service, pick int, description string) error {
	list, cur, err := previous(ctx, a, svc, work.PrevOptions{})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.hub.Info().Trigger("No previous work to resume")
		return nil
	}

	var chosen work.Work
	switch {
	case pick > len(list):
		return fmt.Errorf("there are only %d previous entries", len(list))
	case pick > 0:
		chosen = list[pick-1]
	default:
		opts := make([]tui.Option, 0, len(list))
		for i, w := range list {
			opts = append(opts, tui.Option{ID: strconv.Itoa(i), Label: fmt.Sprintf("%s / %s / %s", w.ClientName, w.ProjectName, w.TaskName)})
		}
		id, err := choose(a, "Resume", opts, "0")
		if err != nil {
			return err
		}
		i, _ := strconv.Atoi(id)
		chosen = list[i]
	}

	sel := work.NewSelector(svc, a.store, work.Prev, nil)
	if err := sel.SelectClient(ctx, chosen.Client); err != nil {
		return a.settle(err, nil)
	}
	if err := sel.SelectProject(ctx, chosen.Project); err != nil {
		return a.settle(err, nil)
	}
	if err := sel.SelectTask(chosen.Task); err != nil {
		return err
	}

	next := work.StartRequest{Project: chosen.Project, Task: chosen.Task, Description: description}
	if cur != nil {
		_, err = svc.Swap(ctx, cur, cur.Description, next)
	} else {
		_, err = svc.Start(ctx, next)
	}
	if err != nil {
		return a.settle(err, startedHandlers(a))
	}
	a.hub.Success().Trigger(fmt.Sprintf("Work on %s started", chosen.TaskName))
	return nil
}
