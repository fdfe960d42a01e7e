package jenkins

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bndr/gojenkins"

	"jenkey/internal/remote"
	"jenkey/pkg/logging"
	pkgstrings "jenkey/pkg/strings"
)

// DefaultTimeout bounds every HTTP request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// folderClass is the only item class descended into when listing jobs.
// Computed folders (multibranch projects, organization folders) manage
// their own children and are reported as single jobs.
const folderClass = "com.cloudbees.hudson.plugins.folder.Folder"

// Config holds the connection settings for a Jenkins controller.
type Config struct {
	URL      string
	Username string
	// Token is an API token or password for Username.
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client, mostly for tests. It should
	// carry a cookie jar since crumbs are bound to the session cookie.
	HTTPClient *http.Client
}

// Client implements remote.Server on top of gojenkins.
//
// Job ids containing "/" address jobs inside folders. gojenkins asks the
// crumb issuer before every POST; the cookie jar keeps those requests on a
// single Jenkins session.
type Client struct {
	base    string
	http    *http.Client
	jenkins *gojenkins.Jenkins
}

var _ remote.Server = (*Client)(nil)

// New creates a client without contacting the server.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("jenkins URL is required")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid jenkins URL %q: %w", cfg.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid jenkins URL %q: scheme must be http or https", cfg.URL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	var auth []interface{}
	if cfg.Username != "" || cfg.Token != "" {
		auth = []interface{}{cfg.Username, cfg.Token}
	}

	return &Client{
		base:    base.String(),
		http:    httpClient,
		jenkins: gojenkins.CreateJenkins(httpClient, base.String(), auth...),
	}, nil
}

// Dial creates a client and checks that the server accepts the credentials.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Factory returns a remote.Factory dialing a fresh client per call.
func Factory(cfg Config) remote.Factory {
	return func(ctx context.Context) (remote.Server, error) {
		return Dial(ctx, cfg)
	}
}

// Ping fetches the root API document.
func (c *Client) Ping(ctx context.Context) error {
	var root struct {
		Mode string `json:"mode"`
	}
	resp, err := c.jenkins.Requester.GetJSON(ctx, "/", &root, map[string]string{"tree": "mode"})
	if err != nil {
		return remote.Wrap("Connect", c.base, err)
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		return withOp(err, "Connect", c.base)
	}
	logging.Debug("JenkinsClient", "Connected to %s", c.base)
	return nil
}

// jobPath maps "a/b/c" to "job/a/job/b/job/c".
func jobPath(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i, part := range parts {
		parts[i] = "job/" + url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// parentPath returns the folder path of id (empty for top-level jobs) and
// the job's short name.
func parentPath(id string) (string, string) {
	id = strings.Trim(id, "/")
	i := strings.LastIndex(id, "/")
	if i < 0 {
		return "", id
	}
	return jobPath(id[:i]), id[i+1:]
}

func viewPath(name string) string {
	return "view/" + url.PathEscape(name)
}

// job returns a gojenkins handle for id. Base is escaped per segment so
// folder and job names with reserved characters survive.
func (c *Client) job(id string) *gojenkins.Job {
	return &gojenkins.Job{
		Jenkins: c.jenkins,
		Raw:     new(gojenkins.JobResponse),
		Base:    "/" + jobPath(id),
	}
}

func (c *Client) view(name string) *gojenkins.View {
	return &gojenkins.View{
		Jenkins: c.jenkins,
		Raw:     new(gojenkins.ViewResponse),
		Base:    "/" + viewPath(name),
	}
}

func checkStatus(status int) error {
	if status < 300 {
		return nil
	}
	return &remote.TransportError{
		StatusCode: status,
		Err:        errors.New(http.StatusText(status)),
	}
}

func withOp(err error, op, name string) error {
	var te *remote.TransportError
	if errors.As(err, &te) {
		te.Op = op
		te.Name = name
		return te
	}
	return remote.Wrap(op, name, err)
}

// libraryError converts an error returned by a gojenkins job method. Those
// report unexpected statuses as the bare status code and Jenkins' X-Error
// header verbatim.
func libraryError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if status, convErr := strconv.Atoi(err.Error()); convErr == nil {
		return withOp(checkStatus(status), op, name)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return remote.Wrap(op, name, err)
	}
	return remote.Wrap(op, name, errors.New(pkgstrings.Snippet(err.Error(), pkgstrings.DefaultSnippetLen)))
}

// post sends a form or XML body through the gojenkins requester, which adds
// the crumb header.
func (c *Client) post(ctx context.Context, op, name, endpoint, xmlBody string, form url.Values, query map[string]string) error {
	var (
		resp *http.Response
		err  error
	)
	if form != nil {
		resp, err = c.jenkins.Requester.Post(ctx, endpoint, strings.NewReader(form.Encode()), nil, query)
	} else {
		resp, err = c.jenkins.Requester.PostXML(ctx, endpoint, xmlBody, nil, query)
	}
	if err != nil {
		return libraryError(op, name, err)
	}
	return withOp(checkStatus(resp.StatusCode), op, name)
}

func exists(op, name string, status int, err error) (bool, error) {
	if err != nil {
		return false, remote.Wrap(op, name, err)
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if err := checkStatus(status); err != nil {
		return false, withOp(err, op, name)
	}
	return true, nil
}

// JobExists reports whether a job with the given id exists.
func (c *Client) JobExists(ctx context.Context, id string) (bool, error) {
	status, err := c.job(id).Poll(ctx)
	return exists("JobExists", id, status, err)
}

// CreateJob creates a job from its config.xml document.
func (c *Client) CreateJob(ctx context.Context, id, document string) error {
	_, name := parentPath(id)
	logging.Debug("JenkinsClient", "Creating job %s", id)
	_, err := c.job(id).Create(ctx, document, map[string]string{"name": name})
	return libraryError("CreateJob", id, err)
}

// ReconfigureJob replaces the config.xml of an existing job.
func (c *Client) ReconfigureJob(ctx context.Context, id, document string) error {
	logging.Debug("JenkinsClient", "Reconfiguring job %s", id)
	return libraryError("ReconfigureJob", id, c.job(id).UpdateConfig(ctx, document))
}

// DeleteJob deletes a job.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	logging.Debug("JenkinsClient", "Deleting job %s", id)
	_, err := c.job(id).Delete(ctx)
	return libraryError("DeleteJob", id, err)
}

// SetNextBuildNumber sets the next build number of a job. Jenkins refuses
// numbers lower than its last build.
func (c *Client) SetNextBuildNumber(ctx context.Context, id string, number int) error {
	form := url.Values{"nextBuildNumber": {strconv.Itoa(number)}}
	return c.post(ctx, "SetNextBuildNumber", id, "/"+jobPath(id)+"/nextbuildnumber/submit", "", form, nil)
}

type folderListing struct {
	Jobs []gojenkins.InnerJob `json:"jobs"`
}

// listFolder returns the direct children of the folder at endpoint.
func (c *Client) listFolder(ctx context.Context, endpoint, name string) ([]gojenkins.InnerJob, error) {
	var listing folderListing
	resp, err := c.jenkins.Requester.GetJSON(ctx, endpoint, &listing, map[string]string{"tree": "jobs[name,_class]"})
	if err != nil {
		return nil, remote.Wrap("ListJobIDs", name, err)
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, withOp(err, "ListJobIDs", name)
	}
	return listing.Jobs, nil
}

// ListJobIDs returns the full names of every job, descending into folders
// one request per folder. Folders themselves are not reported.
func (c *Client) ListJobIDs(ctx context.Context) ([]string, error) {
	var ids []string
	var walk func(prefix string) error
	walk = func(prefix string) error {
		endpoint := "/"
		if prefix != "" {
			endpoint = "/" + jobPath(prefix)
		}
		items, err := c.listFolder(ctx, endpoint, prefix)
		if err != nil {
			return err
		}
		for _, it := range items {
			full := it.Name
			if prefix != "" {
				full = prefix + "/" + it.Name
			}
			if it.Class == folderClass {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			ids = append(ids, full)
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// JobCount returns the number of jobs, folders excluded.
func (c *Client) JobCount(ctx context.Context) (int, error) {
	ids, err := c.ListJobIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ViewExists reports whether a view with the given name exists.
func (c *Client) ViewExists(ctx context.Context, name string) (bool, error) {
	status, err := c.view(name).Poll(ctx)
	return exists("ViewExists", name, status, err)
}

// CreateView creates a view from its config.xml document. gojenkins'
// CreateView only takes a view type, so the document is posted directly.
func (c *Client) CreateView(ctx context.Context, name, document string) error {
	return c.post(ctx, "CreateView", name, "/createView", document, nil, map[string]string{"name": name})
}

// ReconfigureView replaces the config.xml of an existing view.
func (c *Client) ReconfigureView(ctx context.Context, name, document string) error {
	return c.post(ctx, "ReconfigureView", name, c.view(name).Base+"/config.xml", document, nil, nil)
}
