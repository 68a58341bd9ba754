package real

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// ProxyConfig contains configuration for proxy connections.
type ProxyConfig struct {
	Type     string // "socks5" or "http"
	Host     string
	Port     uint16
	Username string
	Password string
}

// applyProxy configures transport to route hand-offs through the proxy.
// SOCKS5 goes through golang.org/x/net/proxy; HTTP proxies use the standard
// CONNECT support of http.Transport.
func applyProxy(transport *http.Transport, config *ProxyConfig) error {
	if config == nil || config.Type == "" {
		return nil
	}

	proxyAddr := net.JoinHostPort(config.Host, fmt.Sprint(config.Port))

	logrus.WithFields(logrus.Fields{
		"function":   "applyProxy",
		"proxy_type": config.Type,
		"proxy_addr": proxyAddr,
	}).Info("Configuring forwarding proxy")

	switch config.Type {
	case "socks5":
		var auth *proxy.Auth
		if config.Username != "" || config.Password != "" {
			auth = &proxy.Auth{
				User:     config.Username,
				Password: config.Password,
			}
		}

		dialer, err := proxy.SOCKS5("tcp", proxyAddr, auth, proxy.Direct)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "applyProxy",
				"proxy_type": config.Type,
				"proxy_addr": proxyAddr,
				"error":      err.Error(),
			}).Error("Failed to create SOCKS5 dialer")
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}

		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		transport.Proxy = nil

	case "http":
		var userInfo *url.Userinfo
		if config.Username != "" {
			if config.Password != "" {
				userInfo = url.UserPassword(config.Username, config.Password)
			} else {
				userInfo = url.User(config.Username)
			}
		}
		transport.Proxy = http.ProxyURL(&url.URL{
			Scheme: "http",
			Host:   proxyAddr,
			User:   userInfo,
		})

	default:
		return fmt.Errorf("unsupported proxy type: %s (must be 'socks5' or 'http')", config.Type)
	}

	return nil
}
