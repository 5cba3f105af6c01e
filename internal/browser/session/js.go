// internal/browser/session/js.go
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// evalJSON evaluates script in the page and unmarshals the JSON result into
// out. A null result leaves out at its zero value.
func (s *Session) evalJSON(ctx context.Context, script string, out interface{}) error {
	var raw json.RawMessage
	err := s.RunActions(ctx, chromedp.Evaluate(script, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
	if err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w (payload: %s)", err, string(raw))
	}
	return nil
}

// jsonEncode safely encodes a value for injection into a script literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// jsFindHelpers is shared by every element-level script: selector dispatch
// over css/xpath, optional descent into same-origin frames, and the computed
// visibility check.
const jsFindHelpers = `
    function findIn(doc, strategy, query) {
        try {
            if (strategy === 'xpath') {
                const r = doc.evaluate(query, doc, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
                return r.singleNodeValue;
            }
            return doc.querySelector(query);
        } catch (e) { return null; }
    }
    function docsFor(inFrame) {
        const docs = [document];
        if (!inFrame) return docs;
        const walk = (win) => {
            for (let i = 0; i < win.frames.length; i++) {
                try {
                    const d = win.frames[i].document;
                    if (d) { docs.push(d); walk(win.frames[i]); }
                } catch (e) {}
            }
        };
        walk(window);
        return docs;
    }
    function findFirst(strategy, query, inFrame) {
        for (const doc of docsFor(inFrame)) {
            const node = findIn(doc, strategy, query);
            if (node) return node;
        }
        return null;
    }
    function visibleNode(node) {
        if (!node) return false;
        const win = node.ownerDocument.defaultView;
        if (!win) return false;
        const style = win.getComputedStyle(node);
        if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
        const rect = node.getBoundingClientRect();
        return rect.width > 0 && rect.height > 0;
    }
    function clickNode(node) {
        try { node.scrollIntoView({block: 'center'}); } catch (e) {}
        if (typeof node.click === 'function') {
            node.click();
            return true;
        }
        const ev = new MouseEvent('click', {bubbles: true, cancelable: true, view: node.ownerDocument.defaultView});
        node.dispatchEvent(ev);
        return true;
    }
    function findFrameDoc(win, name) {
        for (let i = 0; i < win.frames.length; i++) {
            try {
                const f = win.frames[i];
                const d = f.document;
                if (!d) continue;
                if ((f.name || ('frame-' + i)) === name) return d;
                const nested = findFrameDoc(f, name);
                if (nested) return nested;
            } catch (e) {}
        }
        return null;
    }
`

const dispatchClickScript = `(function(strategy, query, inFrame) {` + jsFindHelpers + `
    const node = findFirst(strategy, query, inFrame);
    if (!node) return false;
    return clickNode(node);
})(%s, %s, %t)`

const elementStateScript = `(function(strategy, query, inFrame) {` + jsFindHelpers + `
    const node = findFirst(strategy, query, inFrame);
    if (!node) return {exists: false, visible: false, disabled: false, readOnly: false};
    return {
        exists: true,
        visible: visibleNode(node),
        disabled: !!node.disabled,
        readOnly: !!node.readOnly
    };
})(%s, %s, %t)`

const elementTextScript = `(function(strategy, query, inFrame) {` + jsFindHelpers + `
    const node = findFirst(strategy, query, inFrame);
    if (!node) return '';
    return (node.innerText || node.textContent || '').trim();
})(%s, %s, %t)`

const isVisibleScript = `(function(strategy, query, inFrame) {` + jsFindHelpers + `
    return visibleNode(findFirst(strategy, query, inFrame));
})(%s, %s, %t)`

const visibleTextScript = `(function() {
    return document.body ? document.body.innerText : '';
})()`

const frameClickScript = `(function(frameName, strategy, query) {` + jsFindHelpers + `
    const doc = findFrameDoc(window, frameName);
    if (!doc) return false;
    const node = findIn(doc, strategy, query);
    if (!node) return false;
    return clickNode(node);
})(%s, %s, %s)`

const frameVisibleScript = `(function(frameName, strategy, query) {` + jsFindHelpers + `
    const doc = findFrameDoc(window, frameName);
    if (!doc) return false;
    return visibleNode(findIn(doc, strategy, query));
})(%s, %s, %s)`

// snapshotScript serializes the main document and every reachable same-origin
// frame. Invisible elements are tagged with data-stridr-hidden before
// serialization so the snapshot carries visibility without layout data.
const snapshotScript = `(function() {
    function annotate(doc) {
        const win = doc.defaultView;
        if (!win) return;
        const all = doc.querySelectorAll('*');
        for (const el of all) {
            try {
                const style = win.getComputedStyle(el);
                const rect = el.getBoundingClientRect();
                const hidden = style.display === 'none' || style.visibility === 'hidden' ||
                    (rect.width === 0 && rect.height === 0);
                if (hidden) el.setAttribute('data-stridr-hidden', '1');
                else el.removeAttribute('data-stridr-hidden');
            } catch (e) {}
        }
    }
    const out = [];
    function capture(win, name, main) {
        let doc;
        try { doc = win.document; } catch (e) { return; }
        if (!doc || !doc.documentElement) return;
        annotate(doc);
        let url = '';
        try { url = win.location.href; } catch (e) {}
        out.push({name: name, url: url, main: main, html: doc.documentElement.outerHTML});
        for (let i = 0; i < win.frames.length; i++) {
            try {
                const f = win.frames[i];
                capture(f, f.name || ('frame-' + i), false);
            } catch (e) {}
        }
    }
    capture(window, '', true);
    return out;
})()`
