package constants

// TextSource tags which pipeline stage produced the extracted text.
type TextSource string

// Stable values (stored in history rows).
const (
	SourceStructuredPDF TextSource = "structured-pdf" // layout-aware pdftotext
	SourceRawPDF        TextSource = "raw-pdf"        // layout-naive text stream
	SourceOCR           TextSource = "ocr"            // rasterize + tesseract
)

// FieldSource tags how the final vendor/date/amount fields were determined.
type FieldSource string

const (
	FieldSourceLLM      FieldSource = "llm"
	FieldSourceRegex    FieldSource = "regex"
	FieldSourceProvided FieldSource = "provided"
)
