package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/session"
)

// NotAllowedError は注文のステータスが操作を許さないため送信しなかったことを表す。
type NotAllowedError struct {
	OrderID int64
	Status  apiclient.OrderStatus
	Action  string
}

// Error はエラーメッセージを返す。
func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("注文 %d はステータスが%sのため%sできません", e.OrderID, e.Status, e.Action)
}

// printOrders は注文の一覧を表で出力する。
func printOrders(w io.Writer, orders []apiclient.Order) {
	fmt.Fprintln(w, "ID\tSERVICE\tCUSTOMER\tPROVIDER\tSCHEDULED\tSTATUS\tTOTAL")
	for _, o := range orders {
		scheduled := ""
		if !o.ScheduledDateTime.IsZero() {
			scheduled = o.ScheduledDateTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.ServiceName, o.CustomerName, o.ProviderName, scheduled, o.Status, o.TotalPrice.StringFixed(2))
	}
}

func (a *App) ordersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "注文を操作する",
	}
	cmd.AddCommand(
		a.ordersListCommand(),
		a.ordersShowCommand(),
		a.ordersCreateCommand(),
		a.ordersCancelCommand(),
		a.ordersStatusCommand(),
		a.ordersStatsCommand(),
	)
	return cmd
}

func (a *App) ordersListCommand() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "注文の一覧を表示する（顧客は自分の注文、事業者は受けた注文、管理者は全注文）",
		Args:    cobra.NoArgs,
		PreRunE: a.guard("/orders"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			orders, err := a.listOrders(cmd, status)
			if err != nil {
				return err
			}
			return a.render(orders, func(w io.Writer) { printOrders(w, orders) })
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "ステータスで絞り込む（PENDING、CONFIRMED、IN_PROGRESS、COMPLETED、CANCELLED）")
	return cmd
}

// listOrders はロールに応じた注文一覧を返す。statusを指定した場合はステータスで絞り込む。
func (a *App) listOrders(cmd *cobra.Command, status string) ([]apiclient.Order, error) {
	ctx := cmd.Context()
	if status != "" {
		st, err := apiclient.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		return a.client.Orders().ListByStatus(ctx, st)
	}
	switch a.store.Role() {
	case session.RoleProvider:
		return a.client.Orders().ListMineAsProvider(ctx)
	case session.RoleAdmin:
		return a.client.Orders().List(ctx)
	default:
		return a.client.Orders().ListMine(ctx)
	}
}

func (a *App) ordersShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Short:   "注文を表示する",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.guard("/orders"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			o, err := a.client.Orders().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(o, func(w io.Writer) {
				fmt.Fprintf(w, "id\t%d\n", o.ID)
				fmt.Fprintf(w, "service\t%s\n", o.ServiceName)
				fmt.Fprintf(w, "status\t%s\n", o.Status)
				fmt.Fprintf(w, "total\t%s\n", o.TotalPrice.StringFixed(2))
				if !o.ScheduledDateTime.IsZero() {
					fmt.Fprintf(w, "scheduled\t%s\n", o.ScheduledDateTime.Format("2006-01-02 15:04"))
				}
				if o.Address != "" {
					fmt.Fprintf(w, "address\t%s\n", o.Address)
				}
				if o.Notes != "" {
					fmt.Fprintf(w, "notes\t%s\n", o.Notes)
				}
				if next := o.Status.NextStatuses(); len(next) > 0 && a.store.Role() != session.RoleCustomer {
					fmt.Fprintf(w, "next\t%v\n", next)
				}
			})
		},
	}
}

func (a *App) ordersCreateCommand() *cobra.Command {
	var (
		serviceID int64
		at        string
		address   string
		notes     string
	)
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "サービスを注文する",
		Args:    cobra.NoArgs,
		PreRunE: a.guard("/orders"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			scheduled, err := parseSchedule(at)
			if err != nil {
				return err
			}
			o, err := a.client.Orders().Create(cmd.Context(), apiclient.OrderInput{
				ServiceID:         serviceID,
				ScheduledDateTime: scheduled,
				Address:           address,
				Notes:             notes,
			})
			if err != nil {
				return err
			}
			a.done("注文 %d を作成しました（合計 %s）", o.ID, o.TotalPrice.StringFixed(2))
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&serviceID, "service", 0, "サービスID")
	f.StringVar(&at, "at", "", "予約日時（例: 2026-11-02T10:30）")
	f.StringVar(&address, "address", "", "住所")
	f.StringVar(&notes, "notes", "", "備考")
	return cmd
}

func (a *App) ordersCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "cancel <id>",
		Short:   "PENDINGの注文をキャンセルする",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.guard("/orders"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			o, err := a.client.Orders().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !o.Status.Cancellable() {
				return &NotAllowedError{OrderID: id, Status: o.Status, Action: "キャンセル"}
			}
			if err := a.client.Orders().Cancel(cmd.Context(), id); err != nil {
				return err
			}
			a.done("注文 %d をキャンセルしました", id)
			return nil
		},
	}
}

func (a *App) ordersStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status <id> <status>",
		Short:   "受けた注文のステータスを変更する",
		Args:    cobra.ExactArgs(2),
		PreRunE: a.guard("/provider"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := apiclient.ParseOrderStatus(args[1])
			if err != nil {
				return err
			}
			o, err := a.client.Orders().UpdateStatus(cmd.Context(), id, st)
			if err != nil {
				return err
			}
			a.done("注文 %d のステータスを%sにしました", o.ID, o.Status)
			return nil
		},
	}
}

func (a *App) ordersStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "stats",
		Short:   "事業者向けの集計値を表示する",
		Args:    cobra.NoArgs,
		PreRunE: a.guard("/provider"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.client.Orders().ProviderStatistics(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(stats, func(w io.Writer) {
				fmt.Fprintf(w, "services\t%d\n", stats.TotalServices)
				fmt.Fprintf(w, "orders\t%d\n", stats.TotalOrders)
				fmt.Fprintf(w, "pending\t%d\n", stats.PendingOrders)
				fmt.Fprintf(w, "confirmed\t%d\n", stats.ConfirmedOrders)
				fmt.Fprintf(w, "in progress\t%d\n", stats.InProgressOrders)
				fmt.Fprintf(w, "completed\t%d\n", stats.CompletedOrders)
				fmt.Fprintf(w, "cancelled\t%d\n", stats.CancelledOrders)
				fmt.Fprintf(w, "revenue\t%s\n", stats.TotalRevenue.StringFixed(2))
				fmt.Fprintf(w, "average\t%s\n", stats.AverageOrderValue.StringFixed(2))
			})
		},
	}
}

func (a *App) reviewsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "レビューを操作する",
	}
	cmd.AddCommand(a.reviewsListCommand(), a.reviewsCreateCommand())
	return cmd
}

func (a *App) reviewsListCommand() *cobra.Command {
	var serviceID, providerID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "レビューの一覧を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				reviews []apiclient.Review
				err     error
			)
			switch {
			case serviceID > 0:
				reviews, err = a.client.Reviews().ListByService(cmd.Context(), serviceID)
			case providerID > 0:
				reviews, err = a.client.Reviews().ListByProvider(cmd.Context(), providerID)
			default:
				reviews, err = a.client.Reviews().List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.render(reviews, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tSERVICE\tPROVIDER\tRATING\tCOMMENT")
				for _, r := range reviews {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", r.ID, r.ServiceName, r.ProviderName, r.Rating, r.Comment)
				}
			})
		},
	}
	cmd.Flags().Int64Var(&serviceID, "service", 0, "サービスIDで絞り込む")
	cmd.Flags().Int64Var(&providerID, "provider", 0, "事業者IDで絞り込む")
	cmd.MarkFlagsMutuallyExclusive("service", "provider")
	return cmd
}

func (a *App) reviewsCreateCommand() *cobra.Command {
	var (
		rating  int
		comment string
	)
	cmd := &cobra.Command{
		Use:     "create <order-id>",
		Short:   "完了した注文にレビューを投稿する",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.guard("/orders"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			o, err := a.client.Orders().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !o.Status.Reviewable() {
				return &NotAllowedError{OrderID: id, Status: o.Status, Action: "レビュー"}
			}
			r, err := a.client.Reviews().Create(cmd.Context(), apiclient.ReviewInput{
				OrderID: id,
				Rating:  rating,
				Comment: comment,
			})
			if err != nil {
				return err
			}
			a.done("レビュー %d を投稿しました", r.ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 0, "評価（1〜5）")
	cmd.Flags().StringVar(&comment, "comment", "", "コメント")
	return cmd
}
