package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/localservices/pkg/apiclient"
	"github.com/nao1215/localservices/pkg/session"
)

// readPassword は--passwordが省略された場合に標準入力の1行目をパスワードとして読む。
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("パスワードの読み込みに失敗: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("パスワードを--passwordまたは標準入力で指定してください")
	}
	return password, nil
}

func (a *App) loginCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "ログインする",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			res, err := a.client.Auth().Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			a.done("%s としてログインしました（%s）", res.Username, res.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "パスワード（省略時は標準入力から読む）")
	return cmd
}

func (a *App) registerCommand() *cobra.Command {
	var (
		in       apiclient.Registration
		password string
	)
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "顧客として新規登録してログインする",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			in.Username = args[0]
			in.Password = pw
			res, err := a.client.Auth().Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.done("%s として登録しました（%s）", res.Username, res.Role)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&password, "password", "", "パスワード（省略時は標準入力から読む）")
	f.StringVar(&in.Email, "email", "", "メールアドレス")
	f.StringVar(&in.FirstName, "first-name", "", "名")
	f.StringVar(&in.LastName, "last-name", "", "姓")
	f.StringVar(&in.Phone, "phone", "", "電話番号")
	return cmd
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "ログアウトする",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.client.Auth().Logout()
			a.done("ログアウトしました")
			return nil
		},
	}
}

// whoami はwhoamiコマンドの出力。
type whoami struct {
	Authenticated  bool            `json:"authenticated"`
	Username       string          `json:"username,omitempty"`
	Role           string          `json:"role,omitempty"`
	TokenExpiresAt *time.Time      `json:"tokenExpiresAt,omitempty"`
	User           *apiclient.User `json:"user,omitempty"`
}

func (a *App) whoamiCommand() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "現在のセッションを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := a.store.Snapshot()
			out := whoami{
				Authenticated: snap.Authenticated(),
				Username:      snap.Username,
				Role:          snap.Role.String(),
			}
			if exp, ok := session.TokenExpiry(snap.Token); ok {
				out.TokenExpiresAt = &exp
			}
			if remote && out.Authenticated {
				user, err := a.client.Users().Me(cmd.Context())
				if err != nil {
					return err
				}
				out.User = user
			}
			return a.render(out, func(w io.Writer) {
				if !out.Authenticated {
					fmt.Fprintln(w, "ログインしていません")
					return
				}
				fmt.Fprintf(w, "username\t%s\n", out.Username)
				fmt.Fprintf(w, "role\t%s\n", out.Role)
				if out.TokenExpiresAt != nil {
					fmt.Fprintf(w, "expires\t%s\n", out.TokenExpiresAt.Local().Format(time.DateTime))
				}
				if out.User != nil {
					fmt.Fprintf(w, "name\t%s %s\n", out.User.FirstName, out.User.LastName)
					fmt.Fprintf(w, "email\t%s\n", out.User.Email)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "サーバーからユーザー情報を取得する")
	return cmd
}
