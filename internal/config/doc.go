// Package config はwebサービスの設定を環境変数とYAMLファイルから読み込む。
package config
