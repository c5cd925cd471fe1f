package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Dataset level messages (info)
		"Opened %s dataset (%s, %s)":      "%s データセットを開きました (%s, %s)",
		"Wrote %s chunk %s with %d frames": "%s チャンク %s を %d フレームで書き出しました",
		"Wrote %d chunks to %s":            "%d 個のチャンクを %s に書き出しました",
		"Output saved to %s":               "出力を %s に保存しました",

		// Readers
		"Listed %d %s entries, frames %d..%d step %d": "%d 件の %s エントリを列挙しました (フレーム %d..%d, ステップ %d)",
		"Extracting %s with %s":                       "%s を %s で展開中",
		"Extracted %s to %s":                          "%s を %s に展開しました",
		"Rasterizing %s":                              "%s をラスタライズ中",
		"Validated %s as %s":                          "%s を %s と判定しました",
		"Converted %s to %s":                          "%s を %s に変換しました",
		"Unsupported PCD version in %s":               "%s は未対応の PCD バージョンです",

		// Video decoding
		"Opened %s: %dx%d, time base %d/%d":             "%s を開きました: %dx%d, タイムベース %d/%d",
		"Seeking to keyframe %d (pts %d) for frame %d":  "フレーム %[3]d のためキーフレーム %[1]d (pts %[2]d) へシーク",
		"Counted %d frames in %s":                       "%[2]s のフレーム数は %[1]d です",
		"Cannot count frames of %s: %v":                 "%s のフレーム数を数えられません: %v",
		"Cannot count frames of %s, using stop %d: %v":  "%s のフレーム数を数えられないため stop %d を使います: %v",
		"Drained abandoned decoder":                     "放棄されたデコーダを排出しました",
		"Decoder cleanup failed: %v":                    "デコーダの後始末に失敗しました: %v",

		// Chunk writing
		"Encoding %dx%d at %d fps with %s":         "%dx%d を %d fps、%s でエンコード中",
		"Encoded %d frames at %dx%d with %s to %s": "%d フレームを %dx%d、%s で %s にエンコードしました",
		"Wrote %d frames at quality %d to %s":      "%d フレームを品質 %d で %s に書き出しました",
		"Wrote zip chunk %s":                       "zip チャンク %s を書き出しました",

		// Manifest
		"Stored %d manifest entries": "%d 件のマニフェストエントリを保存しました",

		// Errors
		"Failed to write chunk %s: %v": "チャンク %s の書き込みに失敗しました: %v",
	})
}
