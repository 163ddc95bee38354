package client

// Runtime helpers emitted into the generated module. They are inserted
// after the module header only when the walk discovers a slot that needs
// them, keeping the helper-before-first-use ordering enforceable through
// the statement builder rather than by string inspection.

// condHelper swaps a conditional span in place: it locates the previously
// rendered branch by its marker attribute or its start/end comment pair
// and replaces exactly that span, leaving surrounding siblings untouched.
const condHelper = `const $$cond = (root, id, html) => {
  const tpl = document.createElement('template');
  tpl.innerHTML = html;
  const marked = root.querySelector('[data-pulse-cond="' + id + '"]');
  if (marked) { marked.replaceWith(tpl.content); return; }
  const walker = document.createTreeWalker(root, NodeFilter.SHOW_COMMENT);
  let start = null, end = null;
  while (walker.nextNode()) {
    const c = walker.currentNode;
    if (c.data === 'pulse:' + id) start = c;
    else if (c.data === '/pulse:' + id) { end = c; break; }
  }
  if (!start || !end) return;
  const range = document.createRange();
  range.setStartBefore(start);
  range.setEndAfter(end);
  range.deleteContents();
  range.insertNode(tpl.content);
};`

// reconcileHelper performs keyed reconciliation: existing items are
// matched by their key attribute and moved rather than recreated, so
// focus, scroll and animation state survive reorders and partial updates.
// A matched item syncs its root attributes (index included) from the
// freshly built markup before its content is compared.
const reconcileHelper = `const $$reconcile = (container, data, build, key) => {
  const existing = new Map();
  for (const el of [...container.children]) {
    existing.set(el.getAttribute('data-pulse-key'), el);
  }
  const tpl = document.createElement('template');
  let cursor = null;
  data.forEach((item, i) => {
    const k = String(key(item, i));
    let el = existing.get(k);
    if (el) {
      existing.delete(k);
      tpl.innerHTML = build(item, i);
      const fresh = tpl.content.firstElementChild;
      if (fresh) {
        for (const a of [...el.attributes]) {
          if (!fresh.hasAttribute(a.name)) el.removeAttribute(a.name);
        }
        for (const a of fresh.attributes) {
          if (el.getAttribute(a.name) !== a.value) el.setAttribute(a.name, a.value);
        }
        if (el.innerHTML !== fresh.innerHTML) el.innerHTML = fresh.innerHTML;
      }
    } else {
      tpl.innerHTML = build(item, i);
      el = tpl.content.firstElementChild;
    }
    const ref = cursor ? cursor.nextElementSibling : container.firstElementChild;
    if (el !== ref) container.insertBefore(el, ref);
    cursor = el;
  });
  for (const el of existing.values()) el.remove();
};`
