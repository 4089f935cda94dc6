package scanning

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server  *ghttp.Server
		scanner *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		scanner, err = NewOllama(server.URL()+"/", "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	When("the model answers", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
					Expect(req.Model).To(Equal("llava"))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: `{"invoice_id": "99", "net_weight": 14000}`},
					Done:    true,
				}),
			))
		})

		It("should return the parsed fields", func() {
			fields, err := scanner.ScanDocument([]byte("png bytes"), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(fields.InvoiceID).To(Equal("99"))
			Expect(fields.NetWeight).To(Equal("14000"))
		})
	})

	When("the server keeps failing", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
				ghttp.RespondWith(http.StatusInternalServerError, "boom"),
			)
		})

		It("should open the circuit after three failures", func() {
			for range 3 {
				_, err := scanner.ScanDocument([]byte("png bytes"), "image/png")
				Expect(err).To(MatchError(ContainSubstring("status 500")))
			}
			_, err := scanner.ScanDocument([]byte("png bytes"), "image/png")
			Expect(err).To(MatchError(ErrUnavailable))
			Expect(server.ReceivedRequests()).To(HaveLen(3))
		})
	})
})
