package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	internalhttp "github.com/akellavk/openvpn-dashboard/internal/api/http"
	"github.com/akellavk/openvpn-dashboard/internal/auth"
	"github.com/akellavk/openvpn-dashboard/internal/db"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig
	Http     internalhttp.Config
	Database db.Config
	OpenVPN  OpenVPNConfig `mapstructure:"openvpn"`
	Recon    ReconConfig
	Zabbix   ZabbixConfig
	Auth     auth.Config
}

type OpenVPNConfig struct {
	StatusLog          string `mapstructure:"status_log"`
	ServerLog          string `mapstructure:"server_log"`
	IndexFile          string `mapstructure:"index_file"`
	AddClientScript    string `mapstructure:"add_client_script"`
	RevokeClientScript string `mapstructure:"revoke_client_script"`
	WatchStatus        bool   `mapstructure:"watch_status"`
}

type ReconConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Grace    time.Duration `mapstructure:"grace"`
}

type ZabbixConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SenderPath string `mapstructure:"sender_path"`
	Server     string `mapstructure:"server"`
	Hostname   string `mapstructure:"hostname"`
}

var config Config

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/vpn-dashboard")
	viper.AddConfigPath("/etc/vpn-dashboard")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log.level", "INFO")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.login_rate_per_minute", 10)
	viper.SetDefault("openvpn.status_log", "/var/log/openvpn/server.log")
	viper.SetDefault("openvpn.server_log", "/var/log/openvpn/openvpn.log")
	viper.SetDefault("openvpn.index_file", "/etc/openvpn/easy-rsa/keys/index.txt")
	viper.SetDefault("openvpn.add_client_script", "/usr/local/bin/openvpn-addclient")
	viper.SetDefault("openvpn.revoke_client_script", "/usr/local/bin/openvpn-revoke")
	viper.SetDefault("openvpn.watch_status", true)
	viper.SetDefault("recon.interval", 5*time.Second)
	viper.SetDefault("recon.grace", 2*time.Minute)
	viper.SetDefault("zabbix.sender_path", "/usr/bin/zabbix_sender")
	viper.SetDefault("auth.ttl", 30*time.Minute)

	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("auth.secret", "DASHBOARD_TOKEN_SECRET")
	_ = viper.BindEnv("zabbix.server", "ZABBIX_SERVER")
	_ = viper.BindEnv("zabbix.hostname", "ZABBIX_HOSTNAME")

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; env and defaults may be enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)

	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(config, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}
