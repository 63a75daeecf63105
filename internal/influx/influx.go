// Package influx ships routing telemetry to InfluxDB, falling back to a
// gzipped line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/truckmatch/routecompare/internal/config"
)

// RetentionSeconds is applied to buckets created by Connect.
const RetentionSeconds = 60 * 60 * 24 * 30

// ErrDisabled is returned by Connect when telemetry is switched off.
var ErrDisabled = errors.New("influx telemetry disabled")

// Manager handles the InfluxDB connection and writes.
type Manager struct {
	cfg        config.InfluxConfig
	logger     zerolog.Logger
	backupPath string

	mu           sync.Mutex
	client       influxdb2.Client
	writer       influxdb2_api.WriteAPI
	backupFile   *os.File
	backupWriter *gzip.Writer
	valid        bool
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		cfg:        cfg,
		logger:     log,
		backupPath: backupPath,
	}
}

// Connect establishes the InfluxDB connection. When the server does not
// answer a ping, points are written to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		m.logger.Warn().Err(err).Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing telemetry to backup file")
		return m.OpenBackup()
	}

	if err := m.ensureBucket(ctx, client); err != nil {
		client.Close()
		return err
	}

	writer := client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(writer.Errors())

	m.mu.Lock()
	m.client = client
	m.writer = writer
	m.valid = true
	m.mu.Unlock()

	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context, client influxdb2.Client) error {
	orgs := client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}

	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: RetentionSeconds,
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

// OpenBackup switches the manager to the gzip backup file.
func (m *Manager) OpenBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupWriter != nil {
		return nil
	}

	file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	return nil
}

// Valid reports whether points are going to a live server.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(_ context.Context, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.backupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending writes and releases the client or backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.valid = false

	var errs []error
	if m.backupWriter != nil {
		errs = append(errs, m.backupWriter.Close())
		m.backupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}
