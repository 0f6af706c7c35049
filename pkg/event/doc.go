// Package event はリソース変更後の通知を提供する。
//
// APIクライアントは作成・更新・削除が成功するたびにMutationをBusへ発行する。
// UI層はBusを購読し、Invalidatesが返すファミリーのキャッシュを破棄して再取得する。
// クライアント自身はキャッシュの存在を知らない。
package event
