package command

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// fetchArchive downloads the job's source archive to a temporary file.
type fetchArchive struct {
	// Timeout bounds the whole download, including reading the body.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of times a download that failed with a
	// transient error is retried. The default is no retries.
	MaxRetries int               `mapstructure:"max_retries"`
	Headers    map[string]string `mapstructure:"headers"`
	// TempDir is where the archive is downloaded to. It defaults to the
	// system temporary directory and must not be inside the working
	// directory.
	TempDir string `mapstructure:"temp_dir"`
}

func fetchFactory() Command          { return &fetchArchive{} }
func (c *fetchArchive) Name() string { return pkgsetup.StepFetch }

func (c *fetchArchive) ParseParams(params map[string]interface{}) error {
	if err := decodeParams(c.Name(), params, c); err != nil {
		return err
	}

	if c.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = pkgsetup.DefaultFetchTimeout
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}

	return nil
}

func (c *fetchArchive) validateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing URL '%s'", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("URL '%s' must use http or https", rawURL)
	}
	if u.Host == "" {
		return nil, errors.Errorf("URL '%s' has no host", rawURL)
	}
	return u, nil
}

func (c *fetchArchive) Describe(job *setup.Job) (string, error) {
	if _, err := c.validateURL(job.URL); err != nil {
		return "", err
	}
	desc := fmt.Sprintf("download %s (timeout %s", job.URL, c.Timeout)
	if c.MaxRetries > 0 {
		desc += fmt.Sprintf(", %d retries", c.MaxRetries)
	}
	return desc + ")", nil
}

func (c *fetchArchive) Execute(ctx context.Context, logger grip.Journaler, job *setup.Job) error {
	u, err := c.validateURL(job.URL)
	if err != nil {
		return err
	}

	tempDir := c.TempDir
	if tempDir != "" {
		if tempDir, err = job.Expansions.ExpandString(tempDir); err != nil {
			return errors.Wrap(err, "expanding temp_dir")
		}
	}

	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		if headers[k], err = job.Expansions.ExpandString(v); err != nil {
			return errors.Wrapf(err, "expanding header '%s'", k)
		}
	}

	// The temporary file keeps the archive's extension so the extract step
	// can determine its format without reading the contents.
	f, err := os.CreateTemp(tempDir, fmt.Sprintf("%s-*%s", job.Package, util.ArchiveSuffix(path.Base(u.Path))))
	if err != nil {
		return errors.Wrap(err, "creating temporary archive file")
	}

	started := time.Now()
	size, err := c.download(ctx, u.String(), headers, f)
	catcher := grip.NewBasicCatcher()
	catcher.Add(err)
	catcher.Wrap(f.Close(), "closing temporary archive file")
	if catcher.HasErrors() {
		grip.Warning(message.WrapError(os.Remove(f.Name()), message.Fields{
			"message": "could not remove partial download",
			"path":    f.Name(),
			"job":     job.ID,
		}))
		return catcher.Resolve()
	}

	job.ArchivePath = f.Name()
	logger.Info(message.Fields{
		"message":  "downloaded archive",
		"job":      job.ID,
		"url":      u.String(),
		"path":     job.ArchivePath,
		"size":     humanize.Bytes(uint64(size)),
		"duration": time.Since(started).String(),
	})

	return nil
}

func (c *fetchArchive) download(ctx context.Context, rawURL string, headers map[string]string, out io.Writer) (int64, error) {
	conf := util.NewDefaultHTTPRetryConf()
	conf.MaxRetries = c.MaxRetries
	client := util.GetHTTPRetryableClient(util.NewHTTPClient(c.Timeout), conf)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, errors.Wrap(err, "creating request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "downloading '%s'", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return 0, errors.Errorf("downloading '%s': server responded with '%s'", rawURL, resp.Status)
	}

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return n, errors.Wrapf(err, "reading response body from '%s'", rawURL)
	}
	return n, nil
}
