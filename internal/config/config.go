package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	LiveU        LiveUConfig     `mapstructure:"liveu"`
	Twitch       TwitchConfig    `mapstructure:"twitch"`
	Commands     CommandsConfig  `mapstructure:"commands"`
	RTMP         RTMPConfig      `mapstructure:"rtmp"`
	StatusAPI    StatusAPIConfig `mapstructure:"status_api"`
	Log          LogConfig       `mapstructure:"log"`
	DatabasePath string          `mapstructure:"database_path"`
	LogActivity  bool            `mapstructure:"log_activity"`
}

type LiveUConfig struct {
	Email           string          `mapstructure:"email"`
	Password        string          `mapstructure:"password"`
	AuthURL         string          `mapstructure:"auth_url"`
	APIURL          string          `mapstructure:"api_url"`
	Unit            string          `mapstructure:"unit"` // id or reg code, empty for the first unit
	CustomPortNames liveu.PortNames `mapstructure:"custom_port_names"`
	Monitor         MonitorConfig   `mapstructure:"monitor"`
}

type MonitorConfig struct {
	Interfaces          bool  `mapstructure:"interfaces"`
	Battery             bool  `mapstructure:"battery"`
	Interval            int   `mapstructure:"interval"` // seconds
	BatteryNotification []int `mapstructure:"battery_notification"`
}

type TwitchConfig struct {
	BotUsername     string   `mapstructure:"bot_username"`
	BotOAuth        string   `mapstructure:"bot_oauth"`
	Channel         string   `mapstructure:"channel"`
	ServerURL       string   `mapstructure:"server_url"`
	CommandCooldown int      `mapstructure:"command_cooldown"` // seconds
	ModOnly         bool     `mapstructure:"mod_only"`
	Admins          []string `mapstructure:"admins"`
}

type CommandsConfig struct {
	Stats   []string `mapstructure:"stats"`
	Battery []string `mapstructure:"battery"`
	Start   []string `mapstructure:"start"`
	Stop    []string `mapstructure:"stop"`
	Restart []string `mapstructure:"restart"`
}

type RTMPConfig struct {
	URL         string `mapstructure:"url"`
	Application string `mapstructure:"application"`
	Key         string `mapstructure:"key"`
}

type StatusAPIConfig struct {
	Listen       string `mapstructure:"listen"`
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

func setDefaults() {
	names := liveu.DefaultPortNames()

	viper.SetDefault("liveu.email", "")
	viper.SetDefault("liveu.password", "")
	viper.SetDefault("liveu.auth_url", liveu.DefaultAuthURL)
	viper.SetDefault("liveu.api_url", liveu.DefaultAPIURL)
	viper.SetDefault("liveu.unit", "")
	viper.SetDefault("liveu.custom_port_names.ethernet", names.Ethernet)
	viper.SetDefault("liveu.custom_port_names.wifi", names.WiFi)
	viper.SetDefault("liveu.custom_port_names.cell1", names.Cell1)
	viper.SetDefault("liveu.custom_port_names.cell2", names.Cell2)
	viper.SetDefault("liveu.custom_port_names.usb1", names.USB1)
	viper.SetDefault("liveu.custom_port_names.usb2", names.USB2)
	viper.SetDefault("liveu.monitor.interfaces", true)
	viper.SetDefault("liveu.monitor.battery", true)
	viper.SetDefault("liveu.monitor.interval", 10)
	viper.SetDefault("liveu.monitor.battery_notification", []int{99, 50, 10, 5, 1})

	viper.SetDefault("twitch.bot_username", "")
	viper.SetDefault("twitch.bot_oauth", "")
	viper.SetDefault("twitch.channel", "")
	viper.SetDefault("twitch.server_url", "wss://irc-ws.chat.twitch.tv:443")
	viper.SetDefault("twitch.command_cooldown", 5)
	viper.SetDefault("twitch.mod_only", false)
	viper.SetDefault("twitch.admins", []string{})

	viper.SetDefault("commands.stats", []string{"!lustats", "!liveustats", "!lus"})
	viper.SetDefault("commands.battery", []string{"!battery", "!liveubattery", "!lub"})
	viper.SetDefault("commands.start", []string{"!lustart"})
	viper.SetDefault("commands.stop", []string{"!lustop"})
	viper.SetDefault("commands.restart", []string{"!lurestart"})

	viper.SetDefault("rtmp.url", "")
	viper.SetDefault("rtmp.application", "")
	viper.SetDefault("rtmp.key", "")

	viper.SetDefault("status_api.listen", "")
	viper.SetDefault("status_api.username", "admin")
	viper.SetDefault("status_api.password_hash", "")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 5)

	viper.SetDefault("database_path", "liveu_activity.db")
	viper.SetDefault("log_activity", false)
}

// LoadOrInitialize reads the config file, writing one with defaults first
// when it does not exist yet
func LoadOrInitialize(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	setDefaults()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := viper.WriteConfigAs(configPath); err != nil {
			return nil, err
		}
	} else if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Twitch.BotOAuth = strings.TrimPrefix(cfg.Twitch.BotOAuth, "oauth:")

	return &cfg, nil
}

func SaveConfig(configPath string, cfg *Config) error {
	viper.Set("liveu.email", cfg.LiveU.Email)
	viper.Set("liveu.password", cfg.LiveU.Password)
	viper.Set("liveu.auth_url", cfg.LiveU.AuthURL)
	viper.Set("liveu.api_url", cfg.LiveU.APIURL)
	viper.Set("liveu.unit", cfg.LiveU.Unit)
	viper.Set("liveu.custom_port_names", map[string]interface{}{
		"ethernet": cfg.LiveU.CustomPortNames.Ethernet,
		"wifi":     cfg.LiveU.CustomPortNames.WiFi,
		"cell1":    cfg.LiveU.CustomPortNames.Cell1,
		"cell2":    cfg.LiveU.CustomPortNames.Cell2,
		"usb1":     cfg.LiveU.CustomPortNames.USB1,
		"usb2":     cfg.LiveU.CustomPortNames.USB2,
	})
	viper.Set("liveu.monitor.interfaces", cfg.LiveU.Monitor.Interfaces)
	viper.Set("liveu.monitor.battery", cfg.LiveU.Monitor.Battery)
	viper.Set("liveu.monitor.interval", cfg.LiveU.Monitor.Interval)
	viper.Set("liveu.monitor.battery_notification", cfg.LiveU.Monitor.BatteryNotification)

	viper.Set("twitch.bot_username", cfg.Twitch.BotUsername)
	viper.Set("twitch.bot_oauth", cfg.Twitch.BotOAuth)
	viper.Set("twitch.channel", cfg.Twitch.Channel)
	viper.Set("twitch.server_url", cfg.Twitch.ServerURL)
	viper.Set("twitch.command_cooldown", cfg.Twitch.CommandCooldown)
	viper.Set("twitch.mod_only", cfg.Twitch.ModOnly)
	viper.Set("twitch.admins", cfg.Twitch.Admins)

	viper.Set("commands.stats", cfg.Commands.Stats)
	viper.Set("commands.battery", cfg.Commands.Battery)
	viper.Set("commands.start", cfg.Commands.Start)
	viper.Set("commands.stop", cfg.Commands.Stop)
	viper.Set("commands.restart", cfg.Commands.Restart)

	viper.Set("rtmp.url", cfg.RTMP.URL)
	viper.Set("rtmp.application", cfg.RTMP.Application)
	viper.Set("rtmp.key", cfg.RTMP.Key)

	viper.Set("status_api.listen", cfg.StatusAPI.Listen)
	viper.Set("status_api.username", cfg.StatusAPI.Username)
	viper.Set("status_api.password_hash", cfg.StatusAPI.PasswordHash)

	viper.Set("log.level", cfg.Log.Level)
	viper.Set("log.file", cfg.Log.File)
	viper.Set("log.max_size_mb", cfg.Log.MaxSizeMB)
	viper.Set("log.max_backups", cfg.Log.MaxBackups)

	viper.Set("database_path", cfg.DatabasePath)
	viper.Set("log_activity", cfg.LogActivity)

	return viper.WriteConfigAs(configPath)
}

// IsConfigured reports whether the LiveU and Twitch credentials are filled in
func (c *Config) IsConfigured() bool {
	return c.LiveU.Email != "" && c.LiveU.Password != "" &&
		c.Twitch.BotUsername != "" && c.Twitch.BotOAuth != "" && c.Twitch.Channel != ""
}

func (c *Config) Validate() error {
	if c.LiveU.Monitor.Interval <= 0 {
		return errors.New("liveu.monitor.interval must be positive")
	}
	if c.Twitch.CommandCooldown < 0 {
		return errors.New("twitch.command_cooldown must not be negative")
	}
	for _, p := range c.LiveU.Monitor.BatteryNotification {
		if p < 0 || p > 100 {
			return errors.New("liveu.monitor.battery_notification values must be between 0 and 100")
		}
	}
	return nil
}

func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.LiveU.Monitor.Interval) * time.Second
}

func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Twitch.CommandCooldown) * time.Second
}

// BatteryThresholds returns the notification percentages as battery values
func (c *Config) BatteryThresholds() []uint8 {
	thresholds := make([]uint8, 0, len(c.LiveU.Monitor.BatteryNotification))
	for _, p := range c.LiveU.Monitor.BatteryNotification {
		thresholds = append(thresholds, uint8(p))
	}
	return thresholds
}

// RTMPEnabled reports whether an nginx stats page is configured
func (c *Config) RTMPEnabled() bool {
	return c.RTMP.URL != ""
}

func (c *Config) SetStatusPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.StatusAPI.PasswordHash = string(hash)
	return nil
}

func (c *Config) VerifyStatusPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(c.StatusAPI.PasswordHash), []byte(password))
	return err == nil
}
