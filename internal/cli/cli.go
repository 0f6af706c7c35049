// Package cli はマーケットプレイスのターミナルクライアントを提供する。
//
// UIホストと同じAPIクライアント・セッションストア・ゲートを使用し、
// 画面の代わりにcobraのサブコマンドで各操作を実行する。
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/gate"
	"github.com/nao1215/localservices/pkg/session"
)

// 出力形式。
const (
	outputTable = "table"
	outputJSON  = "json"
)

// App はターミナルクライアント。
type App struct {
	client *apiclient.Client
	store  *session.Store
	out    io.Writer
	output string
}

// New はAPIクライアントの出力先をoutとするターミナルクライアントを生成する。
func New(client *apiclient.Client, out io.Writer) *App {
	return &App{
		client: client,
		store:  client.Session(),
		out:    out,
		output: outputTable,
	}
}

// ExpiredNotice はセッションが無効になったことを利用者に知らせるNavigator。
func ExpiredNotice(w io.Writer) apiclient.Navigator {
	return apiclient.NavigatorFunc(func(string) {
		fmt.Fprintln(w, "セッションの有効期限が切れました。`marketplace login` を実行してください")
	})
}

// DeniedError はゲートがコマンドの実行を拒否したことを表す。
type DeniedError struct {
	// Command は拒否したコマンド。
	Command string
	// Required は要求ロール。
	Required session.Role
	// Decision はゲートの判定結果。
	Decision gate.Decision
}

// Error はエラーメッセージを返す。
func (e *DeniedError) Error() string {
	if e.Decision.Reason == gate.ReasonUnauthenticated {
		return fmt.Sprintf("%s にはログインが必要です。`marketplace login` を実行してください", e.Command)
	}
	return fmt.Sprintf("%s は%sロールのユーザーだけが実行できます", e.Command, e.Required)
}

// Message はエラーを利用者向けの文言に変換する。
func Message(err error) string {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Error()
	}
	if apiclient.KindOf(err) != "" {
		return apiclient.UserMessage(err)
	}
	return err.Error()
}

// Command はルートコマンドを生成する。
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "marketplace",
		Short:         "地域サービスマーケットプレイスのターミナルクライアント",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if a.output != outputTable && a.output != outputJSON {
				return fmt.Errorf("--outputにはtableまたはjsonを指定してください: %q", a.output)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputTable, "出力形式（table|json）")

	root.AddCommand(
		a.loginCommand(),
		a.registerCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.categoriesCommand(),
		a.servicesCommand(),
		a.ordersCommand(),
		a.reviewsCommand(),
		a.adminCommand(),
	)
	return root
}

// guard はゲートの画面パスに対応する判定をコマンドの実行前に行う。
// 保護されていない画面は判定しない。
func (a *App) guard(path string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		route, ok := gate.Lookup(path)
		if !ok {
			return nil
		}
		d := route.Check(a.store.Snapshot())
		if d.Allowed {
			return nil
		}
		return &DeniedError{Command: cmd.CommandPath(), Required: route.Required, Decision: d}
	}
}

// render は出力形式に応じてvをJSONで、またはtableで表として出力する。
func (a *App) render(v any, table func(w io.Writer)) error {
	if a.output == outputJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// done は変更操作の結果を1行で出力する。
func (a *App) done(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// parseID は引数のIDを数値に変換する。
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("IDが不正です: %q", raw)
	}
	return id, nil
}

// parseSchedule は予約日時の文字列（例: 2026-11-02T10:30）を解釈する。
func parseSchedule(raw string) (apiclient.ScheduleTime, error) {
	var t apiclient.ScheduleTime
	if err := t.UnmarshalJSON([]byte(strconv.Quote(raw))); err != nil {
		return t, fmt.Errorf("予約日時はYYYY-MM-DDTHH:MMの形式で指定してください: %w", err)
	}
	return t, nil
}

// activeMark は有効フラグの表示。
func activeMark(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
