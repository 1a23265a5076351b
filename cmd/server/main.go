package main

import (
	"github.com/kwenta-ph/kwenta/backend/internal/server"
	"github.com/kwenta-ph/kwenta/backend/internal/setup"
	"github.com/kwenta-ph/kwenta/backend/internal/util"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()
	setup.Logger("server")

	server.Init()
}
