package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPOptions configures upload to a host whose directory is served over HTTP.
type SFTPOptions struct {
	Addr            string // host:port
	User            string
	KeyPath         string // private key file
	KnownHosts      string // optional known_hosts file; empty skips host key checks
	RemoteDir       string
	DownloadBaseURL string // public URL of RemoteDir
}

// SFTPStorage publishes to a plain file server. The link is not signed:
// expiry is whatever the fronting HTTP server enforces.
type SFTPStorage struct {
	opts    SFTPOptions
	log     *zap.Logger
	connect func(ctx context.Context) (*sftp.Client, io.Closer, error)
}

func NewSFTP(opts SFTPOptions, log *zap.Logger) (*SFTPStorage, error) {
	if opts.Addr == "" || opts.User == "" {
		return nil, fmt.Errorf("sftp: addr and user are required")
	}
	if _, err := url.Parse(opts.DownloadBaseURL); err != nil || opts.DownloadBaseURL == "" {
		return nil, fmt.Errorf("sftp: invalid download base url %q", opts.DownloadBaseURL)
	}
	conf, err := sshClientConfig(opts)
	if err != nil {
		return nil, err
	}

	s := &SFTPStorage{opts: opts, log: loggerOrNop(log)}
	if opts.KnownHosts == "" {
		s.log.Warn("sftp host key not verified, set storage.sftp.known_hosts",
			zap.String("addr", opts.Addr))
	}
	s.connect = func(ctx context.Context) (*sftp.Client, io.Closer, error) {
		return dialSFTP(ctx, opts.Addr, conf)
	}
	return s, nil
}

func sshClientConfig(opts SFTPOptions) (*ssh.ClientConfig, error) {
	keyBytes, err := os.ReadFile(opts.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("sftp: read private key: %w", err)
	}
	key, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("sftp: parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if opts.KnownHosts != "" {
		hostKeyCallback, err = knownhosts.New(opts.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("sftp: load known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            opts.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(key)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}, nil
}

func dialSFTP(ctx context.Context, addr string, conf *ssh.ClientConfig) (*sftp.Client, io.Closer, error) {
	c := *conf
	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}
	sshClient, err := ssh.Dial("tcp", addr, &c)
	if err != nil {
		return nil, nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("open sftp session: %w", err)
	}
	return sftpClient, sshClient, nil
}

func (s *SFTPStorage) Publish(ctx context.Context, localPath string) (string, error) {
	name := filepath.Base(localPath)
	remotePath := path.Join(s.opts.RemoteDir, name)

	client, conn, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	defer client.Close()

	if s.opts.RemoteDir != "" {
		if err := client.MkdirAll(s.opts.RemoteDir); err != nil {
			return "", fmt.Errorf("create remote dir %s: %w", s.opts.RemoteDir, err)
		}
	}

	srcFile, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open report %s: %w", localPath, err)
	}
	defer srcFile.Close()

	dstFile, err := client.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return "", fmt.Errorf("upload %s: %w", remotePath, err)
	}
	if err := dstFile.Close(); err != nil {
		return "", fmt.Errorf("close remote file %s: %w", remotePath, err)
	}
	s.log.Info("report uploaded over sftp", zap.String("addr", s.opts.Addr), zap.String("path", remotePath))

	return downloadURL(s.opts.DownloadBaseURL, name), nil
}

func downloadURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(name)
}
