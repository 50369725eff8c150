package mehcmder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	mehcmder "github.com/papercomputeco/meh/cmd/meh"
	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/search"
	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage"
	"github.com/papercomputeco/meh/pkg/utils"
)

var _ = Describe("meh", func() {
	var dir string

	// runIn executes the CLI against dir with stdin as input.
	runIn := func(stdin string, args ...string) (string, error) {
		cmd := mehcmder.NewMehCmd()
		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", dir))

		err := cmd.Execute()
		return out.String(), err
	}

	run := func(args ...string) string {
		out, err := runIn("", args...)
		Expect(err).NotTo(HaveOccurred(), "meh %s", strings.Join(args, " "))
		return out
	}

	searchJSON := func(query string) search.Response {
		var resp search.Response
		Expect(json.Unmarshal([]byte(run("search", query, "--json")), &resp)).To(Succeed())
		return resp
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		GinkgoT().Setenv("MEH_DATABASE", "")
		GinkgoT().Setenv("NO_COLOR", "1")
	})

	It("registers every command", func() {
		cmd := mehcmder.NewMehCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"init", "add", "show", "search", "browse", "tree", "correct", "extend",
			"deprecate", "history", "pending", "gc", "stats", "config", "serve", "version",
		))
	})

	It("prints the version", func() {
		Expect(run("version")).To(ContainSubstring("meh " + utils.Version))
	})

	It("adds, finds and shows a fact", func() {
		out := run("add", "@svc/api/timeout", "# Request timeout\nThe API times out after 30s.", "--tags", "api,ops")
		Expect(out).To(ContainSubstring("Added meh-"))
		Expect(out).To(ContainSubstring("@svc/api/timeout"))
		Expect(filepath.Join(dir, "meh.db")).To(BeAnExistingFile())

		id := strings.TrimSpace(run("search", "timeout", "--quiet"))
		Expect(id).To(HavePrefix("meh-"))

		shown := run("show", id, "--raw")
		Expect(shown).To(ContainSubstring("Request timeout"))
		Expect(shown).To(ContainSubstring("The API times out after 30s."))
		Expect(shown).To(ContainSubstring("api, ops"))

		Expect(run("show", "@svc/api/timeout")).To(ContainSubstring(id))
	})

	It("reads content from stdin", func() {
		_, err := runIn("Deploys happen on Tuesdays.\n", "add", "@team/deploys")
		Expect(err).NotTo(HaveOccurred())

		Expect(run("search", "tuesdays")).To(ContainSubstring("@team/deploys"))
	})

	It("refuses a write without content", func() {
		_, err := runIn("", "add", "@team/empty")
		Expect(err).To(MatchError(ContainSubstring("content is required")))
	})

	It("corrects a fact and keeps its history", func() {
		run("add", "@svc/timeout", "Timeout is 30s.")
		before := searchJSON("timeout")
		Expect(before.Results).To(HaveLen(1))
		originalID := before.Results[0].Fact.ID

		run("correct", "@svc/timeout", "Timeout is 60s.")

		after := searchJSON("timeout")
		Expect(after.Results).NotTo(BeEmpty())
		for _, r := range after.Results {
			Expect(r.Fact.ID).NotTo(Equal(originalID))
			Expect(r.Fact.Status).To(Equal(fact.StatusActive))
		}
		Expect(after.Results[0].Fact.Content).To(Equal("Timeout is 60s."))
		Expect(*after.Results[0].Fact.Supersedes).To(Equal(originalID))

		history := run("history", "@svc/timeout")
		Expect(strings.Count(history, "@svc/timeout")).To(Equal(2))
		Expect(history).To(ContainSubstring("superseded"))
	})

	It("extends a fact", func() {
		run("add", "@svc/timeout", "Timeout is 30s.")
		Expect(run("extend", "@svc/timeout", "Writes use 120s.")).To(ContainSubstring("Extended"))

		out := run("browse", "@svc/timeout")
		Expect(out).To(ContainSubstring("Timeout is 30s."))
		Expect(out).To(ContainSubstring("Timeout is 30s. (extension)"))
	})

	It("browses the hierarchy", func() {
		run("add", "@svc/api/timeout", "a")
		run("add", "@svc/web", "b")
		run("add", "@team", "c")

		out := run("ls")
		Expect(out).To(ContainSubstring("@svc/ (2)"))
		Expect(out).To(ContainSubstring("@team/ (1)"))

		Expect(run("browse", "@svc")).To(ContainSubstring("@svc/api/ (1)"))
	})

	It("draws the hierarchy as a tree", func() {
		run("add", "@svc/api/timeout", "a")
		run("add", "@svc/api/retries/backoff", "b")
		run("add", "@svc/web", "c")
		run("add", "@team", "d")

		out := run("tree", "--count")
		Expect(out).To(ContainSubstring("├── @svc/ (3)"))
		Expect(out).To(ContainSubstring("│   ├── api/ (2)"))
		Expect(out).To(ContainSubstring("│   │   ├── retries/"))
		Expect(out).To(ContainSubstring("└── @team (1)"))
		Expect(out).To(ContainSubstring("4 facts total"))

		shallow := run("tree", "@svc", "--depth", "1")
		Expect(shallow).To(ContainSubstring("├── api/..."))
		Expect(shallow).To(ContainSubstring("└── web"))
		Expect(shallow).NotTo(ContainSubstring("timeout"))

		dirs := run("tree", "@svc", "--dirs-only")
		Expect(dirs).To(ContainSubstring("└── api/"))
		Expect(dirs).NotTo(ContainSubstring("web"))

		Expect(run("tree", "@nothing")).To(ContainSubstring("No facts found under @nothing"))
	})

	It("reviews pending facts under the ask policy", func() {
		run("config", "set", "write.policy", "ask")

		Expect(run("add", "@svc/timeout", "Timeout is 30s.")).To(ContainSubstring("Queued for review"))
		Expect(run("search", "timeout")).To(ContainSubstring("No results found."))

		pending := run("pending")
		Expect(pending).To(ContainSubstring("1 pending"))
		id := regexp.MustCompile(`meh-[0-9a-z]{8}`).FindString(pending)
		Expect(id).NotTo(BeEmpty())

		run("pending", "approve", id)
		Expect(run("pending", "list")).To(ContainSubstring("No facts pending review."))
		Expect(run("search", "timeout", "--quiet")).To(HavePrefix("meh-"))
	})

	It("honours a policy flag over the config file", func() {
		_, err := runIn("", "add", "@a", "a", "--policy", "deny")
		Expect(errors.Is(err, service.ErrWriteDenied)).To(BeTrue())
		Expect(errors.FlattenHints(err)).To(ContainSubstring("write.policy"))
	})

	It("deprecates and garbage collects", func() {
		run("add", "@old", "Obsolete note.")
		run("deprecate", "@old", "--reason", "retired")

		dry := run("gc", "--retention-days", "0")
		Expect(dry).To(ContainSubstring("Dry run"))
		Expect(dry).To(ContainSubstring("@old"))

		Expect(run("gc", "--retention-days", "0", "--force", "--yes")).To(ContainSubstring("Deleted 1 facts"))
		Expect(run("gc", "--retention-days", "0")).To(ContainSubstring("Nothing to collect."))
	})

	It("reports stats", func() {
		run("add", "@a", "a")
		run("add", "@b", "b")
		run("deprecate", "@b")

		out := run("stats")
		Expect(out).To(MatchRegexp(`active\s+1`))
		Expect(out).To(MatchRegexp(`deprecated\s+1`))
		Expect(out).To(MatchRegexp(`total\s+2`))
	})

	It("reports unknown facts as not found", func() {
		_, err := runIn("", "show", "meh-zzzzzzzz")
		Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
	})

	It("uses the in-memory driver without touching disk", func() {
		run("add", "@a", "a", "--driver", "inmemory")
		_, err := os.Stat(filepath.Join(dir, "meh.db"))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})
})
