package profile_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/spool/pkg/profile"
)

const sampleProfile = `version = 0

[log]
time_layout = "01-02 15:04:05.000"

[trace]
file = "out.json"

[[events]]
name = "app_startup"
start_regex = 'Start proc'
end_regex = 'Displayed'
threshold_ms = 500

[[events]]
name = "db_query"
start_regex = 'QueryBegin'
end_regex = 'QueryEnd'
`

var _ = Describe("Loader", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "profile-test-*")
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeProfile := func(content string) string {
		path := filepath.Join(tmpDir, "profile.toml")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	Describe("Load", func() {
		It("returns defaults when no profile file exists", func() {
			loader, err := profile.NewLoader(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			p, err := loader.Load()
			Expect(err).NotTo(HaveOccurred())

			defaults := profile.NewDefaultProfile()
			Expect(p.Log.HeaderPattern).To(Equal(defaults.Log.HeaderPattern))
			Expect(p.Trace.Category).To(Equal("PERF"))
			Expect(p.Trace.PID).To(Equal(int64(1)))
			Expect(p.Events).To(BeEmpty())
		})

		It("merges file values over defaults", func() {
			writeProfile(sampleProfile)

			loader, err := profile.NewLoader(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			p, err := loader.Load()
			Expect(err).NotTo(HaveOccurred())

			// From the file.
			Expect(p.Trace.File).To(Equal("out.json"))
			Expect(p.Events).To(HaveLen(2))
			Expect(p.Events[0].Name).To(Equal("app_startup"))
			Expect(p.Events[0].ThresholdMS).To(Equal(int64(500)))

			// Filled in from defaults.
			Expect(p.Log.HeaderPattern).NotTo(BeEmpty())
			Expect(p.Trace.Category).To(Equal("PERF"))
		})

		It("loads from an explicit file path", func() {
			path := writeProfile(sampleProfile)

			p, err := profile.NewFileLoader(path).Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Events).To(HaveLen(2))
		})

		It("fails when an explicit file path does not exist", func() {
			path := filepath.Join(tmpDir, "nope.toml")

			_, err := profile.NewFileLoader(path).Load()
			Expect(err).To(MatchError(ContainSubstring("reading profile")))
		})

		It("rejects unparseable TOML", func() {
			writeProfile("version = }{")

			loader, err := profile.NewLoader(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = loader.Load()
			Expect(err).To(HaveOccurred())
		})

		It("rejects unsupported versions", func() {
			writeProfile("version = 99\n")

			loader, err := profile.NewLoader(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = loader.Load()
			Expect(err).To(MatchError(ContainSubstring("unsupported profile version")))
		})
	})

	Describe("Save", func() {
		It("round-trips a profile", func() {
			loader, err := profile.NewLoader(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			p, err := profile.ParseTOML([]byte(sampleProfile))
			Expect(err).NotTo(HaveOccurred())

			Expect(loader.Save(p)).To(Succeed())

			reloaded, err := loader.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Events).To(HaveLen(2))
			Expect(reloaded.Trace.File).To(Equal("out.json"))
		})

		It("refuses a nil profile", func() {
			loader, err := profile.NewLoader(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loader.Save(nil)).To(MatchError(ContainSubstring("nil profile")))
		})
	})
})

var _ = Describe("Compile", func() {
	load := func(content string) *profile.Profile {
		p, err := profile.ParseTOML([]byte(content))
		Expect(err).NotTo(HaveOccurred())

		// Mirror what Loader.Load does for file-backed profiles.
		defaults := profile.NewDefaultProfile()
		if p.Log.HeaderPattern == "" {
			p.Log.HeaderPattern = defaults.Log.HeaderPattern
		}
		if p.Log.TimeLayout == "" {
			p.Log.TimeLayout = defaults.Log.TimeLayout
		}
		if p.Trace.Category == "" {
			p.Trace.Category = defaults.Trace.Category
		}
		if p.Trace.PID == 0 {
			p.Trace.PID = defaults.Trace.PID
		}
		if p.Trace.File == "" {
			p.Trace.File = defaults.Trace.File
		}
		return p
	}

	It("compiles a valid profile", func() {
		compiled, err := load(sampleProfile).Compile()
		Expect(err).NotTo(HaveOccurred())
		Expect(compiled.Decoder).NotTo(BeNil())
		Expect(compiled.Classifier.Definitions()).To(HaveLen(2))
		Expect(compiled.Trace.File).To(Equal("out.json"))
	})

	It("rejects a profile with no events", func() {
		_, err := profile.NewDefaultProfile().Compile()
		Expect(err).To(MatchError(profile.ErrNoEvents))
	})

	It("rejects an invalid header pattern", func() {
		p := load(sampleProfile)
		p.Log.HeaderPattern = `(?P<time>(`
		_, err := p.Compile()
		Expect(err).To(MatchError(ContainSubstring("header pattern")))
	})

	It("rejects an event with a broken start regex", func() {
		p := load(sampleProfile)
		p.Events[1].StartRegex = `ab(cd`
		_, err := p.Compile()
		Expect(err).To(MatchError(ContainSubstring("db_query")))
	})

	It("rejects an event with no name", func() {
		p := load(sampleProfile)
		p.Events[0].Name = ""
		_, err := p.Compile()
		Expect(err).To(MatchError(ContainSubstring("missing name")))
	})

	It("rejects an event with an empty start regex", func() {
		p := load(sampleProfile)
		p.Events[0].StartRegex = ""
		_, err := p.Compile()
		Expect(err).To(MatchError(ContainSubstring("missing start regex for \"app_startup\"")))
	})

	It("rejects an event with an empty end regex", func() {
		p := load(sampleProfile)
		p.Events[1].EndRegex = ""
		_, err := p.Compile()
		Expect(err).To(MatchError(ContainSubstring("missing end regex for \"db_query\"")))
	})

	It("converts thresholds to durations", func() {
		compiled, err := load(sampleProfile).Compile()
		Expect(err).NotTo(HaveOccurred())

		threshold, ok := compiled.Classifier.Threshold("app_startup")
		Expect(ok).To(BeTrue())
		Expect(threshold.Milliseconds()).To(Equal(int64(500)))
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "profile-viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("serves defaults when no profile file exists", func() {
		v, err := profile.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("trace.category")).To(Equal("PERF"))
		Expect(v.GetInt64("trace.pid")).To(Equal(int64(1)))
	})

	It("reads scalar values from profile.toml", func() {
		path := filepath.Join(tmpDir, "profile.toml")
		Expect(os.WriteFile(path, []byte(sampleProfile), 0o600)).To(Succeed())

		v, err := profile.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("trace.file")).To(Equal("out.json"))
	})

	It("lets SPOOL_ environment variables override the file", func() {
		os.Setenv("SPOOL_TRACE_FILE", "env-override.json")
		DeferCleanup(func() { os.Unsetenv("SPOOL_TRACE_FILE") })

		v, err := profile.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("trace.file")).To(Equal("env-override.json"))
	})

	It("overlays onto a profile with ApplyViper", func() {
		os.Setenv("SPOOL_TRACE_CATEGORY", "CUSTOM")
		DeferCleanup(func() { os.Unsetenv("SPOOL_TRACE_CATEGORY") })

		v, err := profile.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		p := profile.NewDefaultProfile()
		profile.ApplyViper(v, p)
		Expect(p.Trace.Category).To(Equal("CUSTOM"))
	})
})
