package weighbridge

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = filepath.Join(GinkgoT().TempDir(), "documents")
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create the base directory", func() {
		Expect(tmpDir).To(BeADirectory())
	})

	Describe("Save", func() {
		var (
			filename  string
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "doc-1_cte.xml"
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, []byte("<CTe/>"))
		})

		When("the name is local", func() {
			It("should write the file and return its name", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedPath).To(Equal(filename))
				Expect(filepath.Join(tmpDir, filename)).To(BeAnExistingFile())
			})
		})

		When("the name escapes the base directory", func() {
			BeforeEach(func() {
				filename = "../escaped.xml"
			})

			It("returns an error without writing", func() {
				Expect(err).To(MatchError(ContainSubstring("invalid document path")))
				Expect(filepath.Join(filepath.Dir(tmpDir), "escaped.xml")).NotTo(BeAnExistingFile())
			})
		})

		When("the name is absolute", func() {
			BeforeEach(func() {
				filename = "/tmp/absolute.xml"
			})

			It("returns an error", func() {
				Expect(err).To(MatchError(ContainSubstring("invalid document path")))
			})
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			_, err := storage.Save("doc-1_cte.xml", []byte("<CTe/>"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the stored bytes", func() {
			data, err := storage.Get("doc-1_cte.xml")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("<CTe/>"))
		})

		It("returns the error for a missing file", func() {
			_, err := storage.Get("missing.xml")
			Expect(err).To(MatchError(ContainSubstring("reading file")))
		})

		It("refuses to read outside the base directory", func() {
			secret := filepath.Join(filepath.Dir(tmpDir), "secret.txt")
			Expect(os.WriteFile(secret, []byte("secret"), 0644)).To(Succeed())

			_, err := storage.Get("../secret.txt")
			Expect(err).To(MatchError(ContainSubstring("invalid document path")))
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			_, err := storage.Save("doc-1_cte.xml", []byte("<CTe/>"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should remove the file", func() {
			Expect(storage.Delete("doc-1_cte.xml")).To(Succeed())
			Expect(filepath.Join(tmpDir, "doc-1_cte.xml")).NotTo(BeAnExistingFile())
		})

		It("returns the error for a missing file", func() {
			Expect(storage.Delete("missing.xml")).To(MatchError(ContainSubstring("deleting file")))
		})
	})
})
