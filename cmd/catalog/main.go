// Command catalog は商品カタログのWebサーバーと管理用サブコマンドを提供する。
//
//	catalog [serve|worker|migrate|healthcheck]
//	catalog import <path|s3://bucket/key>
//	catalog createuser <username> <password> <email>
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/catalog/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
