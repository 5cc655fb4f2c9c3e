package cmd

import (
	"fmt"

	"github.com/shouni/go-ehon-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// statusCmd は、チェックポイントの状況を表示するだけの読み取り専用コマンドなのだ。
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "本のチェックポイント状況を表示するのだ。何も実行しないのだよ。",
	Long: `本のルートディレクトリを検査し、ストーリー・画像・レイアウトのどこまで
完了しているかをページごとに表示するのだ。APIキーは不要なのだよ。`,
	Example: "  ap-ehon-go status -b output/okaimono",
	RunE:    statusCommand,
}

func init() {
}

func statusCommand(cmd *cobra.Command, args []string) error {
	status, err := pipeline.Status(opts.BookRoot)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Book root: %s\n", status.Root)
	if status.Title != "" {
		fmt.Fprintf(out, "Title:     %s\n", status.Title)
	}
	if status.Done {
		fmt.Fprintln(out, "State:     完成なのだ！")
	} else if status.Title == "" {
		fmt.Fprintln(out, "State:     ストーリー未生成なのだ")
		return nil
	} else {
		fmt.Fprintln(out, "State:     作業中なのだ")
	}

	for _, p := range status.Pages {
		fmt.Fprintf(out, "  %-12s image:%s layout:%s\n", p.Name, mark(p.Image.Exists), mark(p.Layout.Exists))
	}
	return nil
}

func mark(ok bool) string {
	if ok {
		return "✔"
	}
	return "✘"
}
