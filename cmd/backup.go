package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/insajin/mcp-workflow/internal/backup"
	"github.com/spf13/cobra"
)

// backupCmd는 설정과 리소스를 백업하는 명령어입니다.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "설정과 리소스를 백업합니다",
	Long: `configs, templates, resources/databases, resources/memory-store를
마스터 설정의 backup.location에 복사합니다.

backup.compression이 true이면 tar.gz로 묶고,
backup.retention을 넘는 오래된 백업은 삭제합니다.
--list는 백업을 만들지 않고 기존 백업을 최신순으로 보여줍니다.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ws, err := openWorkspace()
		if err != nil {
			return err
		}
		if listBackups {
			dir := backup.Dir(ws)
			names, err := backup.List(dir)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			printBackupList(cmd.OutOrStdout(), dir, names)
			return nil
		}

		result, err := backup.Create(ws)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ 백업 완료: %s\n", result.Path)
		fmt.Fprintf(out, "  파일 %d개 복사, %d개 제외\n", result.Files, result.Skipped)
		for _, name := range result.Deleted {
			fmt.Fprintf(out, "  - 오래된 백업 삭제: %s\n", name)
		}
		return nil
	},
}

var listBackups bool

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().BoolVar(&listBackups, "list", false, "기존 백업 목록을 출력합니다")
}

func printBackupList(w io.Writer, dir string, names []string) {
	if len(names) == 0 {
		fmt.Fprintf(w, "백업이 없습니다: %s\n", dir)
		return
	}
	fmt.Fprintf(w, "백업 %d개 (%s):\n", len(names), dir)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}
}
