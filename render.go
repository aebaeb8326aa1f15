package latex

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Render writes attributes of a construct back into markup. Rendering is total: empty mandatory fields are
// substituted with placeholders of the construct, so the output is always a syntactically complete fragment.
func Render(w io.Writer, kind ConstructKind, attrs Attributes) error {
	c, ok := constructs[kind]
	if !ok {
		return fmt.Errorf("construct %v is not supported", kind)
	}

	_, err := fmt.Fprint(w, c.Build(attrs))
	return err
}

// value returns attribute value, or placeholder when the value is blank
func value(attrs Attributes, placeholders Attributes, key string) string {
	if v := attrs[key]; strings.TrimSpace(v) != "" {
		return v
	}

	return placeholders[key]
}

// trimmed is like value, but surrounding whitespaces are removed
func trimmed(attrs Attributes, placeholders Attributes, key string) string {
	return strings.TrimSpace(value(attrs, placeholders, key))
}

func renderWrap(w io.Writer, prefix, content, suffix string) error {
	_, err := fmt.Fprint(w, prefix, content, suffix)
	return err
}

func build(render func(w io.Writer) error) string {
	var sb strings.Builder
	if err := render(&sb); err != nil {
		// strings.Builder never fails to write
		panic(err)
	}

	return sb.String()
}

var layoutPlaceholders = Attributes{"magnitude": "1cm"}

func buildLayout(attrs Attributes) string {
	return build(func(w io.Writer) error {
		star := ""
		if attrs.Bool("starred") {
			star = "*"
		}

		switch attrs["directive"] {
		case "hspace":
			return renderWrap(w, "\\hspace"+star+"{", trimmed(attrs, layoutPlaceholders, "magnitude"), "}")
		case "skip":
			if s, ok := skipByMagnitude(strings.TrimSpace(attrs["magnitude"])); ok {
				return renderWrap(w, s.command, "", "")
			}

			// non-standard skip is written as plain vertical space
			return renderWrap(w, "\\vspace{", trimmed(attrs, layoutPlaceholders, "magnitude"), "}")
		case "vfill":
			return renderWrap(w, "\\vfill", "", "")
		case "hfill":
			return renderWrap(w, "\\hfill", "", "")
		case "pagebreak":
			return renderWrap(w, "\\newpage", "", "")
		default:
			return renderWrap(w, "\\vspace"+star+"{", trimmed(attrs, layoutPlaceholders, "magnitude"), "}")
		}
	})
}

func buildLineBreak(attrs Attributes) string {
	return build(func(w io.Writer) error {
		if spacing := strings.TrimSpace(attrs["spacing"]); spacing != "" {
			return renderWrap(w, "\\\\[", spacing, "]")
		}

		return renderWrap(w, "\\\\", "", "")
	})
}

var imagePlaceholders = Attributes{"src": "image.png"}

func buildImage(attrs Attributes) string {
	return build(func(w io.Writer) error {
		width, err := strconv.ParseFloat(strings.TrimSpace(attrs["width"]), 64)
		if err != nil {
			width = DefaultImageWidth
		}

		graphics := "\\includegraphics[" + BuildImageOptions(width) + "]{" + trimmed(attrs, imagePlaceholders, "src") + "}"

		if !attrs.Bool("figure") {
			return renderWrap(w, graphics, "", "")
		}

		placement := ""
		if v := strings.TrimSpace(attrs["placement"]); v != "" {
			placement = "[" + v + "]"
		}

		if err := renderWrap(w, "\\begin{figure}", placement, "\n"); err != nil {
			return err
		}

		if attrs.Bool("centered") {
			if err := renderWrap(w, "\\centering", "", "\n"); err != nil {
				return err
			}
		}

		if err := renderWrap(w, graphics, "", "\n"); err != nil {
			return err
		}

		if caption := attrs["caption"]; caption != "" {
			if err := renderWrap(w, "\\caption{", caption, "}\n"); err != nil {
				return err
			}
		}

		return renderWrap(w, "\\end{figure}", "", "")
	})
}

var integralPlaceholders = Attributes{"lower": "a", "upper": "b", "integrand": "f(x)", "variable": "x"}

func buildIntegral(attrs Attributes) string {
	return build(func(w io.Writer) error {
		p := integralPlaceholders
		return renderWrap(w, "$\\int_{"+trimmed(attrs, p, "lower")+"}^{"+trimmed(attrs, p, "upper")+"} ",
			value(attrs, p, "integrand"),
			" \\, d"+trimmed(attrs, p, "variable")+"$")
	})
}

var doubleIntegralPlaceholders = Attributes{"domain": "D", "integrand": "f(x,y)", "area": "dA"}

func buildDoubleIntegral(attrs Attributes) string {
	return build(func(w io.Writer) error {
		p := doubleIntegralPlaceholders
		return renderWrap(w, "$\\iint_{"+trimmed(attrs, p, "domain")+"} ",
			value(attrs, p, "integrand"),
			" \\, "+trimmed(attrs, p, "area")+"$")
	})
}

var sumPlaceholders = Attributes{"index": "i", "from": "1", "to": "n", "summand": "a_i"}

func buildSum(attrs Attributes) string {
	return build(func(w io.Writer) error {
		p := sumPlaceholders
		return renderWrap(w, "$\\sum_{"+trimmed(attrs, p, "index")+"="+trimmed(attrs, p, "from")+"}^{"+trimmed(attrs, p, "to")+"} ",
			value(attrs, p, "summand"),
			"$")
	})
}
