package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"socsync/pkg/contracts/domain"
)

func TestLocatorQuery(t *testing.T) {
	tests := []struct {
		name     string
		locator  Locator
		expected string
	}{
		{
			name:     "raw xpath",
			locator:  XPath(`//*[@placeholder="Ops ID"]`),
			expected: `//*[@placeholder="Ops ID"]`,
		},
		{
			name:     "css passes through",
			locator:  CSS(".ssc-dialog-close"),
			expected: ".ssc-dialog-close",
		},
		{
			name:     "button by name",
			locator:  Role("button", "Entrar", false),
			expected: "//*[self::button or @role='button'][contains(normalize-space(.), 'Entrar') or contains(normalize-space(@aria-label), 'Entrar')]",
		},
		{
			name:     "exact tree item",
			locator:  Role("treeitem", "SOC_Received", true),
			expected: "//*[@role='treeitem'][normalize-space(.)='SOC_Received' or normalize-space(@aria-label)='SOC_Received']",
		},
		{
			name:     "text with index",
			locator:  Text("+ adicionar à").At(2),
			expected: "(//*[text()[contains(normalize-space(.), '+ adicionar à')]])[3]",
		},
		{
			name:     "xpath with index",
			locator:  XPath("//li").At(1),
			expected: "(//li)[2]",
		},
		{
			name:     "css ignores index",
			locator:  CSS("li").At(4),
			expected: "li",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.locator.Query())
		})
	}
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", xpathLiteral("plain"))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	assert.Equal(t, `concat('a', "'", 'b"c')`, xpathLiteral(`a'b"c`))
}

func TestDefaultLocatorsUseReportRequest(t *testing.T) {
	l := DefaultLocators(domain.ReportRequest{ExportType: "SOC_Custom", Profile: "ignored"})

	assert.Equal(t, LocatorRole, l.ExportType.Kind)
	assert.Equal(t, "SOC_Custom", l.ExportType.Name)
	assert.True(t, l.ExportType.Exact)
	assert.Equal(t, 2, l.AddTo.Nth)
	assert.True(t, l.DialogWrapper.IsCSS())
	assert.Equal(t, `role=button[name="Baixar"]`, l.Download.String())
}

func TestVisibilityProbe(t *testing.T) {
	css := visibilityProbe(CSS(".ssc-dialog-wrapper"))
	assert.Contains(t, css, `document.querySelector(".ssc-dialog-wrapper")`)

	xp := visibilityProbe(XPath(`//*[@placeholder="Senha"]`))
	assert.Contains(t, xp, `document.evaluate("//*[@placeholder=\"Senha\"]"`)
}

func TestSameDocument(t *testing.T) {
	assert.True(t, sameDocument("https://spx.shopee.com.br/#/home", "https://spx.shopee.com.br/#/orderTracking"))
	assert.False(t, sameDocument("about:blank", "https://spx.shopee.com.br/"))
	assert.False(t, sameDocument("https://a.example/x", "https://a.example/y"))
}
