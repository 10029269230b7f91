package htmlprocessor

// EditableRegionCSS gives elements marked .editable-region by the product UI a hover/focus outline.
const EditableRegionCSS = ".editable-region{outline:2px solid transparent;outline-offset:4px;transition:outline-color .15s ease;cursor:pointer}" +
	".editable-region:hover,.editable-region:focus{outline-color:#FCBD01}" +
	".editable-region:focus{outline-style:solid}"

// Doctype prefixes every serialized preview.
const Doctype = "<!DOCTYPE html>"

// Serialize appends the editable-region stylesheet to <head> and returns the
// complete document, doctype first.
func Serialize(doc Document) string {
	if head := doc.QueryFirst("head"); head != nil {
		head.AppendChild("style", EditableRegionCSS)
	}
	return Doctype + doc.HTML()
}
