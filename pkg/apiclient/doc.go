// Package apiclient はマーケットプレイスのREST APIと通信するクライアントを提供する。
//
// すべての通信はClientを経由する。送信前にセッションのトークンをBearerスキームで付与し、
// 401応答を受け取った場合はセッションを破棄してログイン画面へ遷移させたうえで、
// 呼び出し元にもエラーを返す。作成・更新・削除が成功するとevent.Busへ変更通知を発行する。
//
// リソースごとの操作はCategories、Services、Orders、Reviews、Users、Auth、Adminから取得する。
package apiclient
