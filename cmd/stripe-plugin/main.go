package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/galette-community/plugin-stripe/internal/auth/password"
	"github.com/galette-community/plugin-stripe/internal/clock"
	"github.com/galette-community/plugin-stripe/internal/config"
	"github.com/galette-community/plugin-stripe/internal/migration"
	"github.com/galette-community/plugin-stripe/internal/observability"
	"github.com/galette-community/plugin-stripe/internal/scheduler"
	"github.com/galette-community/plugin-stripe/internal/server"
	"github.com/galette-community/plugin-stripe/pkg/db"
	"go.uber.org/fx"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-token" {
		os.Exit(hashToken())
	}

	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// hashToken reads a bearer token on stdin and prints the hash to put in
// ADMIN_TOKEN_HASHES or STAFF_TOKEN_HASHES.
func hashToken() int {
	token, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && token == "" {
		fmt.Fprintln(os.Stderr, "read token:", err)
		return 1
	}
	token = strings.TrimSpace(token)
	if token == "" {
		fmt.Fprintln(os.Stderr, "empty token")
		return 1
	}

	hash, err := password.Hash(token)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash token:", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
