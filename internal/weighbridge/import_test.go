package weighbridge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/weighbridge/internal/metrics"
)

var _ = Describe("ImportDirectory", func() {
	var (
		dir     string
		docsDir string
		db      *BoltDB
		service *Service
		ctx     context.Context
		summary *ImportSummary
		err     error
	)

	writeFile := func(name, content string) {
		Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)).To(Succeed())
	}

	BeforeEach(func() {
		tmp := GinkgoT().TempDir()
		dir = filepath.Join(tmp, "inbox")
		Expect(os.MkdirAll(dir, 0755)).To(Succeed())

		var openErr error
		db, openErr = NewBoltDB(filepath.Join(tmp, "test.db"))
		Expect(openErr).NotTo(HaveOccurred())
		docsDir = filepath.Join(tmp, "documents")
		storage, storageErr := NewLocalStorage(docsDir)
		Expect(storageErr).NotTo(HaveOccurred())

		clock := &mockTimeSource{now: time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)}
		service = NewService(db, storage, testCatalog(), testEngine(clock), nil, metrics.New())
		ctx = context.Background()
	})

	AfterEach(func() {
		db.Close()
	})

	JustBeforeEach(func() {
		summary, err = service.ImportDirectory(ctx, dir, 3)
	})

	When("the directory holds good and bad documents", func() {
		BeforeEach(func() {
			for _, id := range []string{"11", "12", "13", "14", "15"} {
				writeFile("cte-"+id+".xml", strings.Replace(cteXML, "<nCT>4821</nCT>", "<nCT>"+id+"</nCT>", 1))
			}
			writeFile("broken.xml", "<CTe>")
			writeFile("notes.txt", "not a document")
			Expect(os.Mkdir(filepath.Join(dir, "nested.xml"), 0755)).To(Succeed())
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should issue a ticket per good document", func() {
			Expect(summary.Issued).To(HaveLen(5))

			records, listErr := db.ListRecords()
			Expect(listErr).NotTo(HaveOccurred())
			invoices := make([]string, 0, len(records))
			for _, r := range records {
				invoices = append(invoices, r.InvoiceID)
			}
			Expect(invoices).To(ConsistOf("11", "12", "13", "14", "15"))
		})

		It("should give every ticket its own id", func() {
			ids := map[string]bool{}
			for _, r := range summary.Issued {
				ids[r.ID] = true
			}
			Expect(ids).To(HaveLen(5))
		})

		It("should keep only the documents that were issued", func() {
			entries, readErr := os.ReadDir(docsDir)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(5))
			for _, e := range entries {
				Expect(e.Name()).NotTo(HaveSuffix("broken.xml"))
			}
		})

		It("should report the bad document only", func() {
			Expect(summary.Failures).To(HaveLen(1))
			Expect(summary.Failures[0].Filename).To(Equal("broken.xml"))
			Expect(summary.Failures[0].Error).To(Equal("invalid XML"))
		})
	})

	When("the context is already cancelled", func() {
		BeforeEach(func() {
			writeFile("cte.xml", cteXML)
			cancelled, cancel := context.WithCancel(context.Background())
			cancel()
			ctx = cancelled
		})

		It("returns the context error", func() {
			Expect(err).To(MatchError(context.Canceled))
			Expect(summary.Issued).To(BeEmpty())
		})
	})

	When("the directory does not exist", func() {
		BeforeEach(func() {
			dir = filepath.Join(dir, "missing")
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("reading import directory")))
			Expect(summary).To(BeNil())
		})
	})
})
