package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"

	"github.com/tis-trainee/credential-broker/internal/config"
	"github.com/tis-trainee/credential-broker/internal/handler"
	"github.com/tis-trainee/credential-broker/internal/svc"
)

var configFile = flag.String("f", "etc/broker.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	handler.RegisterErrorHandler()

	server := rest.MustNewServer(c.RestConf, rest.WithCors("*"))
	defer server.Stop()

	ctx := svc.NewServiceContext(c)
	handler.RegisterHandlers(server, ctx)

	ingressCtx, cancelIngress := context.WithCancel(context.Background())
	defer cancelIngress()
	go ctx.Ingress.Run(ingressCtx)

	fmt.Printf("Starting credential broker at %s:%d...\n", c.Host, c.Port)
	server.Start()
}
