package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/session"
)

// adminCommand は管理者向けのコマンド。配下のすべてのコマンドでADMINロールを要求する。
func (a *App) adminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "管理者向けの操作",
	}
	cmd.AddCommand(
		a.adminStatsCommand(),
		a.adminUsersCommand(),
		a.adminServicesCommand(),
		a.adminOrdersCommand(),
	)
	guardLeaves(cmd, a.guard("/admin"))
	return cmd
}

// guardLeaves は実行可能なすべての子孫コマンドにゲートを設定する。
func guardLeaves(cmd *cobra.Command, guard func(*cobra.Command, []string) error) {
	for _, c := range cmd.Commands() {
		if c.Runnable() {
			c.PreRunE = guard
		}
		guardLeaves(c, guard)
	}
}

func (a *App) adminStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "全体の集計値を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.client.Admin().Statistics(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(stats, func(w io.Writer) {
				fmt.Fprintf(w, "users\t%d\n", stats.TotalUsers)
				fmt.Fprintf(w, "customers\t%d\n", stats.TotalCustomers)
				fmt.Fprintf(w, "providers\t%d\n", stats.TotalProviders)
				fmt.Fprintf(w, "services\t%d\n", stats.TotalServices)
				fmt.Fprintf(w, "orders\t%d\n", stats.TotalOrders)
				fmt.Fprintf(w, "pending\t%d\n", stats.PendingOrders)
				fmt.Fprintf(w, "completed\t%d\n", stats.CompletedOrders)
				fmt.Fprintf(w, "cancelled\t%d\n", stats.CancelledOrders)
				fmt.Fprintf(w, "revenue\t%s\n", stats.TotalRevenue.StringFixed(2))
			})
		},
	}
}

// idCommand はID1つを引数に取る変更操作のコマンドを生成する。
func idCommand(use, short string, run func(cmd *cobra.Command, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, id)
		},
	}
}

func (a *App) adminUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "ユーザーを管理する",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "無効なものを含む全ユーザーを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.client.Admin().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(users, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS")
				for _, u := range users {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, activeMark(u.IsActive()))
				}
			})
		},
	}

	var (
		in       apiclient.UserInput
		role     string
		password string
	)
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "ユーザーを作成する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := session.ParseRole(role)
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			in.Username = args[0]
			in.Role = r
			in.Password = pw
			u, err := a.client.Admin().CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.done("ユーザー %d（%s）を作成しました", u.ID, u.Username)
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&password, "password", "", "パスワード（省略時は標準入力から読む）")
	f.StringVar(&in.Email, "email", "", "メールアドレス")
	f.StringVar(&in.FirstName, "first-name", "", "名")
	f.StringVar(&in.LastName, "last-name", "", "姓")
	f.StringVar(&in.Phone, "phone", "", "電話番号")
	f.StringVar(&in.Address, "address", "", "住所")
	f.StringVar(&role, "role", session.RoleCustomer.String(), "ロール（CUSTOMER、PROVIDER、ADMIN）")

	setActive := func(active bool) func(*cobra.Command, int64) error {
		return func(cmd *cobra.Command, id int64) error {
			if _, err := a.client.Admin().UpdateUserStatus(cmd.Context(), id, active); err != nil {
				return err
			}
			a.done("ユーザー %d を%sにしました", id, activeMark(active))
			return nil
		}
	}

	setRole := &cobra.Command{
		Use:   "role <id> <role>",
		Short: "ユーザーのロールを変更する",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := session.ParseRole(args[1])
			if err != nil || r == session.RoleNone {
				return fmt.Errorf("ロールはCUSTOMER、PROVIDER、ADMINのいずれかを指定してください: %q", args[1])
			}
			if _, err := a.client.Admin().UpdateUserRole(cmd.Context(), id, r); err != nil {
				return err
			}
			a.done("ユーザー %d のロールを%sにしました", id, r)
			return nil
		},
	}

	cmd.AddCommand(
		list,
		create,
		idCommand("activate", "ユーザーを有効にする", setActive(true)),
		idCommand("deactivate", "ユーザーを無効にする（削除はしない）", setActive(false)),
		setRole,
		idCommand("delete", "ユーザーを削除する", func(cmd *cobra.Command, id int64) error {
			if err := a.client.Admin().DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			a.done("ユーザー %d を削除しました", id)
			return nil
		}),
	)
	return cmd
}

func (a *App) adminServicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "サービスを管理する",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "無効なものを含む全サービスを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := a.client.Admin().ListServices(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(services, func(w io.Writer) { printServices(w, services) })
		},
	}

	var (
		f          serviceFlags
		providerID int64
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "事業者のサービスを作成する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input(cmd)
			if err != nil {
				return err
			}
			if providerID > 0 {
				in.ProviderID = &providerID
			}
			svc, err := a.client.Admin().CreateService(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.done("サービス %d を作成しました", svc.ID)
			return nil
		},
	}
	f.register(create)
	create.Flags().Int64Var(&providerID, "provider", 0, "事業者ID")

	setActive := func(active bool) func(*cobra.Command, int64) error {
		return func(cmd *cobra.Command, id int64) error {
			if _, err := a.client.Admin().UpdateServiceStatus(cmd.Context(), id, active); err != nil {
				return err
			}
			a.done("サービス %d を%sにしました", id, activeMark(active))
			return nil
		}
	}

	cmd.AddCommand(
		list,
		create,
		idCommand("activate", "サービスを有効にする", setActive(true)),
		idCommand("deactivate", "サービスを無効にする（削除はしない）", setActive(false)),
		idCommand("delete", "サービスを削除する", func(cmd *cobra.Command, id int64) error {
			if err := a.client.Admin().DeleteService(cmd.Context(), id); err != nil {
				return err
			}
			a.done("サービス %d を削除しました", id)
			return nil
		}),
	)
	return cmd
}

func (a *App) adminOrdersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "注文を管理する",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "全注文を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orders, err := a.client.Admin().ListOrders(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(orders, func(w io.Writer) { printOrders(w, orders) })
		},
	}

	var (
		customerID int64
		serviceID  int64
		at         string
		address    string
		notes      string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "顧客の代わりに注文を作成する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if customerID <= 0 {
				return errors.New("--customerを指定してください")
			}
			scheduled, err := parseSchedule(at)
			if err != nil {
				return err
			}
			o, err := a.client.Admin().CreateOrder(cmd.Context(), customerID, apiclient.OrderInput{
				ServiceID:         serviceID,
				ScheduledDateTime: scheduled,
				Address:           address,
				Notes:             notes,
			})
			if err != nil {
				return err
			}
			a.done("注文 %d を作成しました", o.ID)
			return nil
		},
	}
	f := create.Flags()
	f.Int64Var(&customerID, "customer", 0, "顧客ID")
	f.Int64Var(&serviceID, "service", 0, "サービスID")
	f.StringVar(&at, "at", "", "予約日時（例: 2026-11-02T10:30）")
	f.StringVar(&address, "address", "", "住所")
	f.StringVar(&notes, "notes", "", "備考")

	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "注文のステータスを変更する",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := apiclient.ParseOrderStatus(args[1])
			if err != nil {
				return err
			}
			if _, err := a.client.Admin().UpdateOrderStatus(cmd.Context(), id, st); err != nil {
				return err
			}
			a.done("注文 %d のステータスを%sにしました", id, st)
			return nil
		},
	}

	cmd.AddCommand(
		list,
		create,
		status,
		idCommand("delete", "注文を削除する", func(cmd *cobra.Command, id int64) error {
			if err := a.client.Admin().DeleteOrder(cmd.Context(), id); err != nil {
				return err
			}
			a.done("注文 %d を削除しました", id)
			return nil
		}),
	)
	return cmd
}
