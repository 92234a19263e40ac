package entities

import "fmt"

// SlideInfo is the slide position reported by a driver. CurrentSlide is 1-based.
type SlideInfo struct {
	CurrentSlide int `json:"currentSlide"`
	TotalSlides  int `json:"totalSlides"`
}

// DefaultSlideInfo is returned by drivers that cannot query the application
func DefaultSlideInfo() SlideInfo {
	return SlideInfo{CurrentSlide: 1, TotalSlides: 0}
}

// OpenResult is the outcome of asking a driver to open a document
type OpenResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	AppDocumentName string `json:"appDocumentName,omitempty"`
}

// SlideSummary describes one slide in a slide listing
type SlideSummary struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Notes string `json:"notes"`
}

// PlaceholderSlides synthesizes a listing for drivers without slide introspection
func PlaceholderSlides(total int) []SlideSummary {
	slides := make([]SlideSummary, 0, total)
	for i := 1; i <= total; i++ {
		slides = append(slides, SlideSummary{
			Index: i,
			Title: fmt.Sprintf("Slide %d", i),
			Notes: "",
		})
	}
	return slides
}

// CurrentFile summarizes the active file within the registry
type CurrentFile struct {
	Name  string  `json:"name"`
	Path  string  `json:"path"`
	Type  AppType `json:"type"`
	Index int     `json:"index"`
}

// Status is the composite snapshot pushed to control surfaces
type Status struct {
	CurrentFile    *CurrentFile `json:"currentFile"`
	IsPresenting   bool         `json:"isPresenting"`
	CurrentSlide   int          `json:"currentSlide"`
	TotalSlides    int          `json:"totalSlides"`
	SlideNotes     string       `json:"slideNotes"`
	SlideNotesHTML string       `json:"slideNotesHtml"`
	Folder         string       `json:"folder"`
	FileCount      int          `json:"fileCount"`
	DriverType     *AppType     `json:"driverType"`
}

// FileOpenResult is the structured outcome of a session open request
type FileOpenResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}
