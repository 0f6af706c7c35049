// Package session はクライアント側で保持する認証セッション（トークン、ユーザー名、ロール）を管理する。
//
// Storeは現在の利用者が誰であるかを示す唯一の情報源であり、
// 再起動をまたいで永続化される。読み取りはネットワークアクセスを伴わず、
// ブロックしない。永続化先はStorageインターフェースで差し替えられる。
package session
