// Package ui はマーケットプレイスの画面を提供するUIホストの内部実装を提供する。
//
// ホーム、サービス一覧・詳細、注文、プロフィール、事業者ダッシュボード、
// 管理者ダッシュボード、ログイン・新規登録をJSONのビューモデルとして返す。
// 画面への到達可否はルート認可ゲートで判定し、データはすべてAPIクライアント経由で取得する。
// 利用者は1プロセスにつき1人であり、セッションはプロセス内のセッションストアに保持する。
package ui
