package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"tims/internal/billing"
	"tims/internal/rest"
	"tims/internal/work"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List clients",
	RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		clients, err := work.NewService(a.rest).Clients(ctx)
		if err != nil {
			return a.settle(err, nil)
		}
		rows := make([][]string, 0, len(clients))
		for _, c := range clients {
			rows = append(rows, []string{c.ID, c.Name})
		}
		printTable(a.printer, []string{"ID", "Name"}, rows)
		return nil
	}),
}

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects <client>",
		Short: "List the projects of a client",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			projects, err := work.NewService(a.rest).Projects(ctx, args[0])
			if err != nil {
				return a.settle(err, nil)
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{p.ID, p.Name, p.Description})
			}
			printTable(a.printer, []string{"ID", "Name", "Description"}, rows)
			return nil
		}),
	}
}

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <project>",
		Short: "List the tasks of a project",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			tasks, err := work.NewService(a.rest).Tasks(ctx, args[0])
			if err != nil {
				return a.settle(err, nil)
			}
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, []string{t.ID, t.Name, t.Description})
			}
			printTable(a.printer, []string{"ID", "Name", "Description"}, rows)
			return nil
		}),
	}
}

type rangeFlags struct {
	from string
	to   string
}

func (r *rangeFlags) bind(cmd *cobra.Command, def string) {
	cmd.Flags().StringVar(&r.from, "from", "", "first day, YYYY-MM-DD (default "+def+")")
	cmd.Flags().StringVar(&r.to, "to", "", "last day, YYYY-MM-DD")
}

func (r *rangeFlags) resolve(def billing.Range) (billing.Range, error) {
	return billing.ParseRange(r.from, r.to, def, time.Local)
}

func newInvoicesCmd() *cobra.Command {
	var rf rangeFlags
	invoicesCmd := &cobra.Command{
		Use:   "invoices",
		Short: "List invoices",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			r, err := rf.resolve(billing.LastYear(time.Now()))
			if err != nil {
				return err
			}
			invoices, err := billing.NewService(a.rest).Invoices(ctx, r)
			if err != nil {
				return a.settle(err, nil)
			}
			rows := make([][]string, 0, len(invoices))
			for _, inv := range invoices {
				rows = append(rows, []string{inv.ID, formatDate(inv.Created), inv.ClientName, inv.Identifier,
					formatDate(inv.Start), formatDate(inv.End), money(inv.Total)})
			}
			printTable(a.printer, []string{"ID", "Created", "Client", "Invoice", "Start", "End", "Total"}, rows)
			return nil
		}),
	}
	rf.bind(invoicesCmd, "365 days ago")

	var gf rangeFlags
	var client string
	var lines []string
	var yes bool
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Preview and generate an invoice for a client",
		Long: `Preview and generate an invoice. The range defaults to the previous
month. Additional lines are given as text:type:amount, type being cost or
discount, e.g. --line "Hosting:cost:25.00".`,
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			r, err := gf.resolve(billing.PreviousMonth(time.Now()))
			if err != nil {
				return err
			}
			req := billing.GenerateRequest{Client: client, Range: r}
			for _, l := range lines {
				line, err := billing.ParseLine(l)
				if err != nil {
					return err
				}
				req.Additional = append(req.Additional, line)
			}
			return generateInvoice(ctx, a, req, yes)
		}),
	}
	gf.bind(generateCmd, "first of last month")
	generateCmd.Flags().StringVarP(&client, "client", "c", "", "client id")
	generateCmd.Flags().StringArrayVarP(&lines, "line", "l", nil, "additional line text:type:amount (repeatable)")
	generateCmd.Flags().BoolVarP(&yes, "yes", "y", false, "generate without asking")
	_ = generateCmd.MarkFlagRequired("client")

	pdfCmd := &cobra.Command{
		Use:   "pdf <invoice>",
		Short: "Print the link to an invoice PDF",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			link, err := billing.NewService(a.rest).PDF(ctx, args[0])
			if err != nil {
				return a.settle(err, rest.Handlers{
					rest.CodeDBNoRecord: func(*rest.ServiceError) error {
						a.hub.Error().Trigger("No such invoice")
						return errSilent
					},
				})
			}
			a.printer.Println(link)
			return nil
		}),
	}

	invoicesCmd.AddCommand(generateCmd, pdfCmd)
	return invoicesCmd
}

func generateInvoice(ctx context.Context, a *app, req billing.GenerateRequest, yes bool) error {
	svc := billing.NewService(a.rest)
	preview, err := svc.Preview(ctx, req)
	if err != nil {
		return a.settle(err, nil)
	}
	printInvoice(a, preview)
	if err := preview.Check(); err != nil {
		a.hub.Warning().Trigger(err.Error())
	}

	if !yes {
		if !interactive() {
			return errors.New("refusing to generate without a terminal, pass --yes")
		}
		a.printer.Suspend()
		_, err := (&promptui.Prompt{Label: "Generate this invoice", IsConfirm: true}).Run()
		a.printer.Resume()
		if err != nil {
			a.hub.Info().Trigger("Invoice not generated")
			return nil
		}
	}

	inv, err := svc.Generate(ctx, req)
	if err != nil {
		return a.settle(err, nil)
	}
	a.hub.Success().Trigger(fmt.Sprintf("Invoice %s generated", inv.Identifier))
	return nil
}

func printInvoice(a *app, inv *billing.Invoice) {
	a.printer.Printf("%s  %s to %s\n", inv.ClientName, formatDate(inv.Start), formatDate(inv.End))
	rows := make([][]string, 0, len(inv.Items)+len(inv.Additional)+len(inv.Taxes)+2)
	for _, it := range inv.Items {
		rows = append(rows, []string{it.ProjectName, work.FormatElapsed(time.Duration(it.Minutes) * time.Minute), money(it.Amount)})
	}
	for _, l := range inv.Additional {
		rows = append(rows, []string{l.Text, string(l.Type), money(l.Signed())})
	}
	if len(inv.Taxes) > 0 {
		rows = append(rows, []string{"Subtotal", "", money(inv.Subtotal)})
		for _, t := range inv.Taxes {
			rows = append(rows, []string{t.Name, "", money(t.Amount)})
		}
	}
	rows = append(rows, []string{"Total", "", money(inv.Total)})
	printTable(a.printer, []string{"Project", "Hours", "Amount"}, rows)
}

func newPaymentsCmd() *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List payments",
		RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			r, err := rf.resolve(billing.LastYear(time.Now()))
			if err != nil {
				return err
			}
			payments, err := billing.NewService(a.rest).Payments(ctx, r)
			if err != nil {
				return a.settle(err, nil)
			}
			rows := make([][]string, 0, len(payments))
			for _, p := range payments {
				rows = append(rows, []string{formatDate(p.Created), p.ClientName, p.Transaction, money(p.Amount)})
			}
			printTable(a.printer, []string{"Created", "Client", "Transaction", "Amount"}, rows)
			return nil
		}),
	}
	rf.bind(cmd, "365 days ago")
	return cmd
}

var owesCmd = &cobra.Command{
	Use:   "owes",
	Short: "Show what you owe",
	RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		return showOwes(ctx, a)
	}),
}

func showOwes(ctx context.Context, a *app) error {
	balance, err := billing.NewService(a.rest).Owes(ctx)
	if err != nil {
		return a.settle(err, nil)
	}
	a.printer.Println(billing.StateOf(balance).String())
	a.printer.Println(billing.OwesMessage(balance))
	return nil
}
