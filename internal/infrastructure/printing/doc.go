// Package printing renders label sheets from HTML to PDF with a headless
// Chrome driven through chromedp.
//
// Example usage:
//
//	renderer, err := NewChromedpRenderer(&ChromedpConfig{NoSandbox: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer renderer.Close()
//
//	result, err := renderer.Render(ctx, &RenderRequest{
//	    HTML:   "<div>R 10k</div>",
//	    Width:  50,
//	    Height: 30,
//	})
package printing
