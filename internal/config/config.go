package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	MQTT      MQTTConfig   `mapstructure:"mqtt_settings"`
	Modbus    ModbusConfig `mapstructure:"modbus_settings"`
	Server    ServerConfig `mapstructure:"server"`
	Site      SiteConfig   `mapstructure:"site_settings"`
	DeviceMap string       `mapstructure:"device_map"`
}

type MQTTConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	CommandTopic  string `mapstructure:"command_topic"`
	ErrorTopic    string `mapstructure:"error_topic"`
	PublishErrors bool   `mapstructure:"publish_errors"`
	QoS           int    `mapstructure:"qos"`
	ClientID      string `mapstructure:"client_id"`
}

type ModbusConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	UnitID  int           `mapstructure:"unit_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SiteConfig struct {
	DeviceID string `mapstructure:"device_id"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetDefault("mqtt_settings.port", 1883)
	viper.SetDefault("mqtt_settings.command_topic", "commandbridge/commands")
	viper.SetDefault("mqtt_settings.error_topic", "commandbridge/errors")
	viper.SetDefault("mqtt_settings.publish_errors", true)
	viper.SetDefault("mqtt_settings.qos", 1)
	viper.SetDefault("modbus_settings.port", 502)
	viper.SetDefault("modbus_settings.unit_id", 1)
	viper.SetDefault("modbus_settings.timeout", "5s")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("device_map", "configs/devicemap.yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("BRIDGE")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.MQTT.Host == "" {
		return nil, fmt.Errorf("mqtt_settings.host is required")
	}
	if config.Modbus.Host == "" {
		return nil, fmt.Errorf("modbus_settings.host is required")
	}

	return &config, nil
}

// ErrorTopicFor appends the site device ID so multiple bridges can share
// one error topic tree. An empty result disables error publishing.
func (m *MQTTConfig) ErrorTopicFor(deviceID string) string {
	if !m.PublishErrors || m.ErrorTopic == "" {
		return ""
	}
	if deviceID == "" {
		return m.ErrorTopic
	}
	return fmt.Sprintf("%s/%s", m.ErrorTopic, deviceID)
}
