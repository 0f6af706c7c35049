// Package middleware はUIホストのGinルーターで使用する共通ミドルウェアを提供する。
//
// ルート単位のロール認可（RequireRole）、リクエストログ、パニックリカバリ、
// CORS設定を含む。
package middleware
