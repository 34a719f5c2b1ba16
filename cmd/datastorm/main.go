// Command datastorm 是 datastorm 数据集与模型的命令行入口。
package main

import (
	"os"

	"datastorm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
