package weighbridge

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/weighbridge/internal/ticket"
)

var _ = Describe("ExportTickets", func() {
	var (
		db      *mockDB
		service *Service
		buf     *bytes.Buffer
		err     error
	)

	BeforeEach(func() {
		db = newMockDB()
		buf = &bytes.Buffer{}
	})

	JustBeforeEach(func() {
		timeSrc := &mockTimeSource{now: time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)}
		service = NewServiceWithDeps(db, newMockStorage(), testCatalog(), testEngine(timeSrc), nil, nil, &mockIDGenerator{id: "doc-1"}, timeSrc)
		err = service.ExportTickets(buf)
	})

	When("tickets exist", func() {
		BeforeEach(func() {
			Expect(db.SaveRecord(&Record{
				Ticket: ticket.Ticket{
					InvoiceID:             "4821",
					NetWeightInvoice:      12000,
					VehicleID:             "t1",
					PlateNumber:           "ABC1D23",
					TareWeight:            8000,
					GrossWeightCalculated: 19987,
					IssueTimestamp:        time.Date(2024, 3, 16, 9, 30, 15, 0, time.UTC),
					Status:                ticket.StatusPrinted,
				},
				DocumentPath: "doc-1_cte.xml",
			})).To(Succeed())
		})

		It("should write one row per ticket under a header", func() {
			Expect(err).NotTo(HaveOccurred())

			f, openErr := excelize.OpenReader(buf)
			Expect(openErr).NotTo(HaveOccurred())
			defer f.Close()

			Expect(f.GetSheetList()).To(Equal([]string{"Tickets"}))

			rows, rowsErr := f.GetRows("Tickets")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0][0]).To(Equal("Ticket"))
			Expect(rows[1]).To(Equal([]string{
				"1", "4821", "2024-03-16 09:30:15", "t1", "ABC1D23", "12000", "8000", "19987", "Printed", "doc-1_cte.xml",
			}))
		})
	})

	When("there are no tickets", func() {
		It("should write only the header", func() {
			Expect(err).NotTo(HaveOccurred())

			f, openErr := excelize.OpenReader(buf)
			Expect(openErr).NotTo(HaveOccurred())
			defer f.Close()

			rows, rowsErr := f.GetRows("Tickets")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
		})
	})

	When("the database fails", func() {
		BeforeEach(func() {
			db.listErr = errors.New("db error")
		})

		It("returns the error without writing", func() {
			Expect(err).To(MatchError(ContainSubstring("db error")))
			Expect(buf.Len()).To(BeZero())
		})
	})
})
