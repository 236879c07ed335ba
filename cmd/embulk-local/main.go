// Command embulk-local runs the Lambda handler once from a shell:
//
//	embulk-local '{"config_file_name":"sample.yml"}'
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
