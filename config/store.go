package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-viper/encoding/ini"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// configType is the format of the settings file, the INI layout the
// desktop client reads and writes.
const configType = "ini"

// Store reads and writes the settings file of one profile directory. It
// uses a private viper instance so several stores can coexist.
type Store struct {
	v    *viper.Viper
	dir  string
	path string
}

// NewStore creates a store for the settings file in dir. Nothing is read
// until Load.
func NewStore(dir string) *Store {
	path := filepath.Join(dir, FileName)
	codecs := viper.NewCodecRegistry()
	if err := codecs.RegisterCodec(configType, ini.Codec{}); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewStore",
			"error":    err.Error(),
		}).Error("Failed to register settings codec")
	}
	v := viper.NewWithOptions(viper.WithCodecRegistry(codecs))
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	for key, value := range values(DefaultSettings()) {
		v.SetDefault(key, value)
	}
	return &Store{v: v, dir: dir, path: path}
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file yields DefaultSettings.
// The result is normalized.
func (s *Store) Load() (*Settings, error) {
	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "Store.Load",
			"path":     s.path,
		}).Info("Settings file not found, using defaults")
	}

	var settings Settings
	if err := s.v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	settings.Normalize()

	logrus.WithFields(logrus.Fields{
		"function":     "Store.Load",
		"path":         s.path,
		"save_version": settings.General.SaveVersion,
	}).Debug("Settings loaded")
	return &settings, nil
}

// Save writes every section of settings to the file, creating the profile
// directory when needed.
func (s *Store) Save(settings *Settings) error {
	if settings == nil {
		return errors.New("nil settings")
	}
	out := *settings
	out.General.SaveVersion = SaveVersion
	out.Normalize()

	for key, value := range values(&out) {
		s.v.Set(key, value)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Store.Save",
		"path":     s.path,
	}).Info("Settings saved")
	return nil
}

// values flattens settings into the dotted keys of the file.
func values(s *Settings) map[string]any {
	return map[string]any{
		"general.save_version":      s.General.SaveVersion,
		"general.utox_last_version": s.General.LastVersion,
		"general.send_version":      s.General.SendVersion,
		"general.update_to_develop": s.General.UpdateToDevelop,

		"interface.language":            s.Interface.Language,
		"interface.window_x":            s.Interface.WindowX,
		"interface.window_y":            s.Interface.WindowY,
		"interface.window_width":        s.Interface.WindowWidth,
		"interface.window_height":       s.Interface.WindowHeight,
		"interface.theme":               s.Interface.Theme,
		"interface.scale":               s.Interface.Scale,
		"interface.logging_enabled":     s.Interface.LoggingEnabled,
		"interface.close_to_tray":       s.Interface.CloseToTray,
		"interface.start_in_tray":       s.Interface.StartInTray,
		"interface.auto_startup":        s.Interface.AutoStartup,
		"interface.use_mini_flist":      s.Interface.UseMiniFlist,
		"interface.filter":              s.Interface.Filter,
		"interface.magic_flist_enabled": s.Interface.MagicFlistEnabled,

		"av.push_to_talk":            s.AV.PushToTalk,
		"av.audio_filtering_enabled": s.AV.AudioFilteringEnabled,
		"av.audio_device_in":         s.AV.AudioDeviceIn,
		"av.audio_device_out":        s.AV.AudioDeviceOut,
		"av.video_device":            s.AV.VideoDevice,
		"av.video_fps":               s.AV.VideoFPS,
		"av.audio_preview":           s.AV.AudioPreview,
		"av.video_preview":           s.AV.VideoPreview,

		"notifications.audible_notifications_enabled": s.Notifications.AudibleNotificationsEnabled,
		"notifications.status_notifications":          s.Notifications.StatusNotifications,
		"notifications.no_typing_notifications":       s.Notifications.NoTypingNotifications,
		"notifications.group_notifications":           int(s.Notifications.GroupNotifications),

		"advanced.enableipv6":       s.Advanced.EnableIPv6,
		"advanced.disableudp":       s.Advanced.DisableUDP,
		"advanced.proxyenable":      s.Advanced.ProxyEnable,
		"advanced.proxy_port":       s.Advanced.ProxyPort,
		"advanced.proxy_ip":         s.Advanced.ProxyIP,
		"advanced.force_proxy":      s.Advanced.ForceProxy,
		"advanced.auto_update":      s.Advanced.AutoUpdate,
		"advanced.mailbox_mode":     s.Advanced.MailboxMode,
		"advanced.mailbox_capacity": s.Advanced.MailboxCapacity,
	}
}
