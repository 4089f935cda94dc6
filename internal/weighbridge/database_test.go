package weighbridge

import (
	"path/filepath"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/weighbridge/internal/ticket"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	newRecord := func(invoiceID string) *Record {
		return &Record{
			Ticket: ticket.Ticket{
				InvoiceID:             invoiceID,
				NetWeightInvoice:      12000,
				VehicleID:             "t1",
				PlateNumber:           "ABC1D23",
				TareWeight:            8000,
				GrossWeightCalculated: 20004,
				IssueTimestamp:        time.Date(2024, 3, 16, 9, 30, 15, 0, time.UTC),
				Status:                ticket.StatusPrinted,
			},
			DocumentPath: "doc-1_cte.xml",
			ContentType:  "application/xml",
			CreatedAt:    time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC),
		}
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveRecord", func() {
		It("should assign increasing ids", func() {
			first := newRecord("100")
			second := newRecord("101")
			Expect(db.SaveRecord(first)).To(Succeed())
			Expect(db.SaveRecord(second)).To(Succeed())
			Expect(first.ID).To(Equal("1"))
			Expect(second.ID).To(Equal("2"))
		})

		It("should overwrite a record that already has an id", func() {
			record := newRecord("100")
			Expect(db.SaveRecord(record)).To(Succeed())
			record.PlateNumber = "XYZ9K88"
			Expect(db.SaveRecord(record)).To(Succeed())

			records, err := db.ListRecords()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].PlateNumber).To(Equal("XYZ9K88"))
		})

		It("should not reuse an id after an explicit one", func() {
			explicit := newRecord("100")
			explicit.ID = "7"
			Expect(db.SaveRecord(explicit)).To(Succeed())

			next := newRecord("101")
			Expect(db.SaveRecord(next)).To(Succeed())
			Expect(next.ID).To(Equal("8"))
		})

		It("rejects a non-numeric id", func() {
			record := newRecord("100")
			record.ID = "abc"
			Expect(db.SaveRecord(record)).To(MatchError(ContainSubstring("invalid ticket id")))
		})
	})

	Describe("GetRecord", func() {
		It("should read back what was saved", func() {
			record := newRecord("100")
			Expect(db.SaveRecord(record)).To(Succeed())

			got, err := db.GetRecord(record.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.InvoiceID).To(Equal("100"))
			Expect(got.GrossWeightCalculated).To(Equal(20004))
			Expect(got.IssueTimestamp.Equal(record.IssueTimestamp)).To(BeTrue())
			Expect(got.DocumentPath).To(Equal("doc-1_cte.xml"))
		})

		It("returns ErrNotFound for an unknown id", func() {
			_, err := db.GetRecord("99")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("returns ErrNotFound for a malformed id", func() {
			_, err := db.GetRecord("../1")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListRecords", func() {
		It("should return an empty list for a new database", func() {
			records, err := db.ListRecords()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
			Expect(records).NotTo(BeNil())
		})

		It("should list in issue order past the single-digit ids", func() {
			for i := range 12 {
				Expect(db.SaveRecord(newRecord(strconv.Itoa(i)))).To(Succeed())
			}

			records, err := db.ListRecords()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(12))
			Expect(records[9].ID).To(Equal("10"))
			Expect(records[11].ID).To(Equal("12"))
		})
	})

	Describe("persistence", func() {
		It("should keep records and the sequence across reopen", func() {
			Expect(db.SaveRecord(newRecord("100"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			next := newRecord("101")
			Expect(db.SaveRecord(next)).To(Succeed())
			Expect(next.ID).To(Equal("2"))
		})
	})
})
