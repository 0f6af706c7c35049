package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nao1215/localservices/pkg/apiclient"
)

func (a *App) categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "カテゴリの一覧を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories, err := a.client.Categories().List(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(categories, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, c := range categories {
					fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Name, c.Description)
				}
			})
		},
	}
}

// printServices はサービスの一覧を表で出力する。
func printServices(w io.Writer, services []apiclient.Service) {
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tCATEGORY\tPROVIDER\tSTATUS")
	for _, s := range services {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, s.Price.StringFixed(2), s.CategoryName, s.ProviderName, activeMark(s.IsActive()))
	}
}

func (a *App) servicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "サービスを操作する",
	}
	cmd.AddCommand(
		a.servicesListCommand(),
		a.servicesShowCommand(),
		a.servicesMineCommand(),
		a.servicesCreateCommand(),
		a.servicesUpdateCommand(),
		a.servicesDeleteCommand(),
	)
	return cmd
}

func (a *App) servicesListCommand() *cobra.Command {
	var categoryID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "サービスの一覧を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				services []apiclient.Service
				err      error
			)
			if categoryID > 0 {
				services, err = a.client.Services().ListByCategory(cmd.Context(), categoryID)
			} else {
				services, err = a.client.Services().List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.render(services, func(w io.Writer) { printServices(w, services) })
		},
	}
	cmd.Flags().Int64Var(&categoryID, "category", 0, "カテゴリIDで絞り込む")
	return cmd
}

// serviceDetail はservices showの出力。
type serviceDetail struct {
	Service *apiclient.Service `json:"service"`
	Reviews []apiclient.Review `json:"reviews"`
}

func (a *App) servicesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "サービスとそのレビューを表示する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.client.Services().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			reviews, err := a.client.Reviews().ListByService(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(serviceDetail{Service: svc, Reviews: reviews}, func(w io.Writer) {
				fmt.Fprintf(w, "id\t%d\n", svc.ID)
				fmt.Fprintf(w, "name\t%s\n", svc.Name)
				fmt.Fprintf(w, "price\t%s\n", svc.Price.StringFixed(2))
				fmt.Fprintf(w, "category\t%s\n", svc.CategoryName)
				fmt.Fprintf(w, "provider\t%s\n", svc.ProviderName)
				fmt.Fprintf(w, "status\t%s\n", activeMark(svc.IsActive()))
				if svc.Description != "" {
					fmt.Fprintf(w, "description\t%s\n", svc.Description)
				}
				fmt.Fprintf(w, "reviews\t%d\n", len(reviews))
				for _, r := range reviews {
					fmt.Fprintf(w, "  %d/5\t%s\n", r.Rating, r.Comment)
				}
			})
		},
	}
}

func (a *App) servicesMineCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "mine",
		Short:   "自分が提供するサービスの一覧を表示する",
		Args:    cobra.NoArgs,
		PreRunE: a.guard("/provider"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := a.client.Services().ListMine(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(services, func(w io.Writer) { printServices(w, services) })
		},
	}
}

// serviceFlags はサービスの作成・更新で共通のフラグ。
type serviceFlags struct {
	name        string
	description string
	price       string
	duration    int
	imageURL    string
	categoryID  int64
	active      bool
}

func (f *serviceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "サービス名")
	fs.StringVar(&f.description, "description", "", "説明")
	fs.StringVar(&f.price, "price", "", "価格（例: 120.50）")
	fs.IntVar(&f.duration, "duration", 0, "所要時間（分）")
	fs.StringVar(&f.imageURL, "image-url", "", "画像のURL")
	fs.Int64Var(&f.categoryID, "category", 0, "カテゴリID")
	fs.BoolVar(&f.active, "active", true, "有効にするか")
}

// parsePrice は価格の文字列を解釈する。
func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("価格が不正です: %q", raw)
	}
	return d, nil
}

// input はフラグから作成用の入力を組み立てる。
func (f *serviceFlags) input(cmd *cobra.Command) (apiclient.ServiceInput, error) {
	in := apiclient.ServiceInput{
		Name:        f.name,
		Description: f.description,
		ImageURL:    f.imageURL,
		CategoryID:  f.categoryID,
	}
	price, err := parsePrice(f.price)
	if err != nil {
		return in, err
	}
	in.Price = price
	if cmd.Flags().Changed("duration") {
		in.DurationMinutes = &f.duration
	}
	if cmd.Flags().Changed("active") {
		in.Active = &f.active
	}
	return in, nil
}

// update はフラグから更新用の入力を組み立てる。指定されなかったフラグは変更しない。
func (f *serviceFlags) update(cmd *cobra.Command) (apiclient.ServiceUpdate, error) {
	var in apiclient.ServiceUpdate
	changed := cmd.Flags().Changed
	if changed("name") {
		in.Name = &f.name
	}
	if changed("description") {
		in.Description = &f.description
	}
	if changed("price") {
		price, err := parsePrice(f.price)
		if err != nil {
			return in, err
		}
		in.Price = &price
	}
	if changed("duration") {
		in.DurationMinutes = &f.duration
	}
	if changed("image-url") {
		in.ImageURL = &f.imageURL
	}
	if changed("category") {
		in.CategoryID = &f.categoryID
	}
	if changed("active") {
		in.Active = &f.active
	}
	return in, nil
}

func (a *App) servicesCreateCommand() *cobra.Command {
	var f serviceFlags
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "サービスを作成する",
		Args:    cobra.NoArgs,
		PreRunE: a.guard("/provider"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input(cmd)
			if err != nil {
				return err
			}
			svc, err := a.client.Services().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.done("サービス %d を作成しました", svc.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *App) servicesUpdateCommand() *cobra.Command {
	var f serviceFlags
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "サービスを更新する",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.guard("/provider"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in, err := f.update(cmd)
			if err != nil {
				return err
			}
			if _, err := a.client.Services().Update(cmd.Context(), id, in); err != nil {
				return err
			}
			a.done("サービス %d を更新しました", id)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *App) servicesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "サービスを削除する",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.guard("/provider"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.Services().Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.done("サービス %d を削除しました", id)
			return nil
		},
	}
}
