// Package main provides localization for the mediachunk CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Read media datasets and cut them into chunks": "メディアデータセットを読み込みチャンクに分割",
		"Configuration file (YAML)":                    "設定ファイル（YAML）",
		"Log level (debug, info, warn, error)":         "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                      "全てのログ出力を抑制",

		// Commands
		"Describe a dataset":                          "データセットの情報を表示",
		"Write the preview of one frame as PNG":       "1フレームのプレビューをPNGで出力",
		"Cut a dataset into chunks":                   "データセットをチャンクに分割",
		"Detect the dimension of a dataset directory": "データセットディレクトリの次元を判定",
		"Index the keyframes of an MP4 file":          "MP4ファイルのキーフレームを索引化",
		"Manage configuration files":                  "設定ファイルを管理",
		"Write the default configuration":             "デフォルト設定を書き出す",
		"Show version information":                    "バージョン情報を表示",
		"mediachunk version %s":                       "mediachunk バージョン %s",

		// Range flags
		"First frame index":           "最初のフレーム番号",
		"Last frame index, inclusive": "最後のフレーム番号（含む）",
		"Frame step":                  "フレームの間隔",
		"Sorting method (lexicographical, natural, predefined, random)": "並び順（lexicographical, natural, predefined, random）",
		"Directory receiving extracted content":                         "展開先ディレクトリ",

		// Command flags
		"Frame to preview":                                "プレビューするフレーム",
		"Output PNG file path (required)":                 "出力PNGファイルパス（必須）",
		"Output directory (required)":                     "出力ディレクトリ（必須）",
		"Frames per chunk":                                "チャンクあたりのフレーム数",
		"Chunk qualities to write (compressed, original)": "書き出すチャンク品質（compressed, original）",
		"Store video frames in zip chunks":                "動画フレームをzipチャンクに格納",
		"Keyframe manifest database for seeking":          "シーク用キーフレームマニフェストDB",
		"Keep .bin point clouds after conversion":         "変換後も .bin 点群を残す",
		"Manifest database path (required)":               "マニフェストDBのパス（必須）",

		// Output
		"Category: %s":        "カテゴリ: %s",
		"Mode: %s":            "モード: %s",
		"Dimension: %s":       "次元: %s",
		"Frames: %d":          "フレーム数: %d",
		"Frame size: %dx%d":   "フレームサイズ: %dx%d",
		"Duration: %.2fs":     "再生時間: %.2f秒",
		"Point clouds: %d":    "点群: %d",
		"Images: %d":          "画像: %d",
		"Converted: %d":       "変換: %d",
		"Indexed %d keyframes": "%d 個のキーフレームを索引化しました",
		"Output saved to %s":  "出力を %s に保存しました",

		// Runtime messages
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Error messages
		"At least one input path is required": "入力パスが1つ以上必要です",
		"A directory argument is required":    "ディレクトリ引数が必要です",
		"A video argument is required":        "動画引数が必要です",
	})
}
