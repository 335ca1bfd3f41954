package browser

import (
	"encoding/json"
	"fmt"
)

const refAttribute = "data-att-ref"

// valueTags are the elements whose value property is a user-visible label.
// Other elements expose unrelated numeric values, such as li.value.
var valueTags = []string{"input", "button", "select", "textarea", "option"}

var valueTagsJS = func() string {
	data, _ := json.Marshal(valueTags)

	return string(data)
}()

// refSelector addresses a node previously tagged by findElementsScript.
func refSelector(ref string) string {
	return fmt.Sprintf(`[%s="%s"]`, refAttribute, ref)
}

// findElementsScript returns every node matching the query in document
// order, tagging each with a stable ref attribute so the caller can act on
// exactly that node later. Refs survive repeated scans of the same node.
func findElementsScript() string {
	return `(query) => {
		const seqKey = '__attRefSeq';
		window[seqKey] = window[seqKey] || 0;

		const isVisible = (el) => {
			const rect = el.getBoundingClientRect();
			const style = window.getComputedStyle(el);

			return (
				rect.width > 0 &&
				rect.height > 0 &&
				style.display !== 'none' &&
				style.visibility !== 'hidden' &&
				parseFloat(style.opacity || '1') > 0
			);
		};

		const ownText = (el) => Array.from(el.childNodes)
			.filter(n => n.nodeType === Node.TEXT_NODE)
			.map(n => n.textContent)
			.join(' ')
			.replace(/\s+/g, ' ')
			.trim();

		const depth = (el) => {
			let d = 0;
			for (let p = el.parentElement; p; p = p.parentElement) {
				d++;
			}
			return d;
		};

		const valueTags = new Set(` + valueTagsJS + `);

		let nodes;
		try {
			nodes = document.querySelectorAll(query);
		} catch (e) {
			return {error: e.message, elements: []};
		}

		const elements = [];
		nodes.forEach((el, index) => {
			let ref = el.getAttribute('` + refAttribute + `');
			if (!ref) {
				window[seqKey] += 1;
				ref = String(window[seqKey]);
				el.setAttribute('` + refAttribute + `', ref);
			}

			const text = (el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim();
			const value = valueTags.has(el.tagName.toLowerCase()) && el.value != null ? String(el.value) : '';

			elements.push({
				ref: ref,
				index: index,
				tag: el.tagName.toLowerCase(),
				text: text.slice(0, 500),
				ownText: ownText(el).slice(0, 500),
				value: value,
				visible: isVisible(el),
				depth: depth(el),
			});
		});

		return {elements: elements};
	}`
}

const scrollIntoViewScript = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return {success: false, error: 'element not found'};

	el.scrollIntoView({behavior: 'instant', block: 'center'});

	return {success: true};
}`

const directClickScript = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return {success: false, error: 'element not found'};

	try {
		el.scrollIntoView({behavior: 'instant', block: 'center'});
		el.click();
		return {success: true};
	} catch (e) {
		return {success: false, error: e.message};
	}
}`
