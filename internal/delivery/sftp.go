package delivery

import (
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig configures the SFTP sink.
type SFTPConfig struct {
	// Host is the SFTP server address.
	Host string

	// Port is the SSH port, default 22.
	Port int

	// Username authenticates the SSH session.
	Username string

	// Password authenticates the SSH session. Key-based auth wins when
	// both are set.
	Password string

	// PrivateKeyPath is the path to a PEM-encoded private key.
	PrivateKeyPath string

	// RemoteDir is the upload target directory, created if missing.
	RemoteDir string

	// HostKeyFingerprint pins the server's public key (SHA256:...).
	// Empty skips verification.
	HostKeyFingerprint string

	// Timeout bounds the TCP connect.
	Timeout time.Duration
}

// SFTPSink uploads completed downloads to a remote SFTP server.
// The connection is established lazily on first delivery and reused
// afterwards.
type SFTPSink struct {
	cfg SFTPConfig

	mu      sync.Mutex
	sshConn *ssh.Client
	client  *sftp.Client
	initErr error
	started bool
}

// NewSFTPSink creates an SFTP sink. No connection is made until the
// first Deliver call.
func NewSFTPSink(cfg SFTPConfig) *SFTPSink {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SFTPSink{cfg: cfg}
}

// Name identifies the sink in warnings.
func (s *SFTPSink) Name() string {
	return "sftp"
}

// Deliver uploads one file to the remote directory.
func (s *SFTPSink) Deliver(_ context.Context, meta FileMeta) error {
	client, err := s.connect()
	if err != nil {
		return err
	}

	local, err := os.Open(meta.Path)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer local.Close()

	remotePath := path.Join(s.cfg.RemoteDir, meta.Filename)
	remote, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file: %w", err)
	}
	defer remote.Close()

	if _, err := remote.ReadFrom(local); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// connect establishes the SSH and SFTP sessions once. A failed
// connection is cached so later deliveries fail fast.
func (s *SFTPSink) connect() (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return s.client, s.initErr
	}
	s.started = true

	auth, err := s.authMethods()
	if err != nil {
		s.initErr = err
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            s.cfg.Username,
		Auth:            auth,
		HostKeyCallback: s.hostKeyCallback(),
		Timeout:         s.cfg.Timeout,
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	sshConn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		s.initErr = fmt.Errorf("ssh dial %s: %w", addr, err)
		return nil, s.initErr
	}

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		s.initErr = fmt.Errorf("sftp session: %w", err)
		return nil, s.initErr
	}

	if s.cfg.RemoteDir != "" {
		if err := client.MkdirAll(s.cfg.RemoteDir); err != nil {
			client.Close()
			sshConn.Close()
			s.initErr = fmt.Errorf("create remote dir %s: %w", s.cfg.RemoteDir, err)
			return nil, s.initErr
		}
	}

	s.sshConn = sshConn
	s.client = client
	return client, nil
}

// authMethods builds the SSH auth chain from the config.
func (s *SFTPSink) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if s.cfg.PrivateKeyPath != "" {
		key, err := os.ReadFile(s.cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if s.cfg.Password != "" {
		methods = append(methods, ssh.Password(s.cfg.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth configured for %s", s.cfg.Host)
	}
	return methods, nil
}

// hostKeyCallback pins the configured fingerprint, or accepts any key
// when no fingerprint is configured.
func (s *SFTPSink) hostKeyCallback() ssh.HostKeyCallback {
	if s.cfg.HostKeyFingerprint == "" {
		return ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via empty fingerprint
	}
	expected := s.cfg.HostKeyFingerprint
	return func(_ string, _ net.Addr, key ssh.PublicKey) error {
		if got := ssh.FingerprintSHA256(key); got != expected {
			return fmt.Errorf("host key mismatch: got %s", got)
		}
		return nil
	}
}

// Close tears down the SFTP and SSH sessions.
func (s *SFTPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.client != nil {
		firstErr = s.client.Close()
		s.client = nil
	}
	if s.sshConn != nil {
		if err := s.sshConn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.sshConn = nil
	}
	return firstErr
}
