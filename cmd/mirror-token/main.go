// mirror-token 为开启认证的部署签发客户端令牌
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"magic-mirror-server/internal/domain/auth"
	"magic-mirror-server/internal/platform/config"
)

func main() {
	clientID := flag.String("client", "mirror-web", "client id written into the token")
	secret := flag.String("secret", "", "signing secret, defaults to server.auth.secret / MIRROR_AUTH_SECRET")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to server.auth.ttl")
	configPath := flag.String("config", "", "config file path")
	flag.Parse()

	if err := run(*clientID, *secret, *ttl, *configPath); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "mirror-token: %v\n", err)
		os.Exit(1)
	}
}

func run(clientID, secret string, ttl time.Duration, configPath string) error {
	if secret == "" || ttl <= 0 {
		loader := config.NewLoader()
		if configPath != "" {
			loader = loader.WithPaths(configPath)
		}
		result, err := loader.Load()
		if err != nil {
			return err
		}
		if secret == "" {
			secret = result.Config.Server.Auth.Secret
		}
		if ttl <= 0 {
			ttl = result.Config.Server.Auth.TTL
		}
	}

	token, err := auth.NewAuthToken(secret)
	if err != nil {
		return err
	}
	signed, err := token.WithTTL(ttl).GenerateToken(clientID)
	if err != nil {
		return err
	}
	fmt.Println(signed)
	return nil
}
