// Command lambda is the AWS Lambda entry point: one event, one Embulk run.
package main

import (
	"fmt"
	"os"

	"embulkshim/internal/app"
	"embulkshim/internal/config"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	lambda.Start(a.Handler.Handle)
}
