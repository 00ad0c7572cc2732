// gatecheck はパスとCookie名の組に対するルートアクセスゲートの判定を表示する。
// ルート分類テーブルを変更したときの確認に使う。
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nao1215/gearboard/internal/routegate"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run はコマンドライン引数を解釈して判定を stdout に書き出し、終了コードを返す。
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gatecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("path", "", "判定するパス（クエリ文字列を含んでもよい）")
	cookies := fs.String("cookies", "", "リクエストに付いているCookie名（カンマ区切り）")
	table := fs.String("table", "", "ルート分類テーブルのYAMLファイル（省略時は既定のテーブル）")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *path == "" {
		fmt.Fprintln(stderr, "-path is required")
		return 1
	}

	t := routegate.DefaultTable()
	if *table != "" {
		loaded, err := routegate.LoadTable(*table)
		if err != nil {
			fmt.Fprintf(stderr, "load table: %v\n", err)
			return 1
		}
		t = loaded
	}

	d := routegate.New(t).Decide(routegate.NewRequest(*path, splitNames(*cookies)...))
	fmt.Fprintf(stdout, "kind:     %s\n", d.Kind)
	fmt.Fprintf(stdout, "class:    %s\n", d.Class)
	if d.IsRedirect() {
		fmt.Fprintf(stdout, "location: %s\n", d.Location)
	}
	return 0
}

// splitNames はカンマ区切りのCookie名を分割する。空の要素は捨てる。
func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
