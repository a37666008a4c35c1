package qjs

// Host functions the prelude captures and removes from the global object.
const (
	fnInvoke  = "__jsbridge_invoke"
	fnMethods = "__jsbridge_methods"
	fnReject  = "__jsbridge_reject"
	fnLog     = "__jsbridge_log"
	fnSealer  = "__jsbridge_sealer"
	fnSeal    = "__jsbridge_seal"
	fnOpen    = "__jsbridge_open"
)

// Entry points on the hidden __jsbridge global.
const (
	callBind    = "__jsbridge.bind"
	callRun     = "__jsbridge.run"
	callInstall = "__jsbridge.install"
)

// Rejection reasons passed to fnReject.
const (
	reasonConstructor = "constructor"
	reasonReceiver    = "receiver"
)

// prelude sets up proxies, the wire codec and the built-ins. Proxies are
// frozen plain objects; each method is a callable bound to (id, name)
// that checks new.target and its receiver before calling the host.
const prelude = `(function (g) {
	var invoke = g.` + fnInvoke + `;
	var methods = g.` + fnMethods + `;
	var reject = g.` + fnReject + `;
	var log = g.` + fnLog + `;
	var newSealer = g.` + fnSealer + `;
	var seal = g.` + fnSeal + `;
	var open = g.` + fnOpen + `;
	delete g.` + fnInvoke + `;
	delete g.` + fnMethods + `;
	delete g.` + fnReject + `;
	delete g.` + fnLog + `;
	delete g.` + fnSealer + `;
	delete g.` + fnSeal + `;
	delete g.` + fnOpen + `;

	var TAG = "` + tagKey + `";
	var ids = new WeakMap();
	var proxies = new Map();

	function tagged(kind, fields) {
		var o = {};
		o[TAG] = kind;
		for (var k in fields) o[k] = fields[k];
		return o;
	}

	function binary(bytes) {
		return tagged("` + tagBinary + `", { data: Array.from(bytes) });
	}

	function encode(v) {
		switch (typeof v) {
		case "undefined":
			return null;
		case "boolean":
		case "string":
			return v;
		case "number":
			if (Object.is(v, -0)) return tagged("` + tagNumber + `", { value: "-0" });
			if (!isFinite(v)) return tagged("` + tagNumber + `", { value: String(v) });
			return v;
		case "function":
			return tagged("` + tagAmbiguous + `", { type: "Function" });
		case "symbol":
			return tagged("` + tagAmbiguous + `", { type: "Symbol" });
		case "bigint":
			return tagged("` + tagAmbiguous + `", { type: "BigInt" });
		}
		if (v === null) return null;
		if (ids.has(v)) return tagged("` + tagObject + `", { id: ids.get(v) });
		if (v instanceof ArrayBuffer) return binary(new Uint8Array(v));
		if (v instanceof Uint8Array) return binary(v);
		if (v instanceof Date) return tagged("` + tagDate + `", { value: v.getTime() });
		if (v instanceof RegExp) return tagged("` + tagRegExp + `", { value: v.source });
		return tagged("` + tagAmbiguous + `", { type: Object.prototype.toString.call(v).slice(8, -1) });
	}

	function decode(text) {
		return JSON.parse(text, function (k, v) {
			if (v === null || typeof v !== "object" || Array.isArray(v) || !(TAG in v)) return v;
			switch (v[TAG]) {
			case "` + tagObject + `":
				return wrap(v.id);
			case "` + tagBinary + `":
				return new Uint8Array(v.data).buffer;
			case "` + tagNumber + `":
				return Number(v.value);
			}
			return v;
		});
	}

	function callable(id, name) {
		return function () {
			if (new.target !== undefined) return reject(name, "` + reasonConstructor + `");
			if (!ids.has(this)) return reject(name, "` + reasonReceiver + `");
			var args = [];
			for (var i = 0; i < arguments.length; i++) args.push(encode(arguments[i]));
			return decode(invoke(id, name, JSON.stringify(args)));
		};
	}

	function wrap(id) {
		var p = proxies.get(id);
		if (p !== undefined) return p;
		var names = JSON.parse(methods(id));
		if (names === null) return undefined;
		p = {};
		names.forEach(function (name) {
			Object.defineProperty(p, name, { value: callable(id, name), enumerable: true });
		});
		Object.freeze(p);
		ids.set(p, id);
		proxies.set(id, p);
		return p;
	}

	function concat(args, sep) {
		return Array.prototype.map.call(args, String).join(sep);
	}

	function sink(name, sep, levels) {
		var s = {};
		Object.keys(levels).forEach(function (m) {
			s[m] = function () { log(name, levels[m], concat(arguments, sep)); };
		});
		return s;
	}

	function key(k) {
		if (k === undefined || k === null) throw new TypeError("a key is required");
		return String(k);
	}

	function sealer(h) {
		return {
			seal: function (text) { return seal(h, String(text)); },
			open: function (text) { return open(h, String(text)); }
		};
	}

	function crypto() {
		var make = function (k) {
			var h = newSealer(key(k));
			return h === undefined ? undefined : sealer(h);
		};
		var current = 0;
		g.getJSCrypto = make;
		g.JSCrypto = { key: make };
		g.jscrypto = {
			setkey: function (k) {
				var h = newSealer(key(k));
				if (h === undefined) return false;
				current = h;
				return true;
			},
			seal: function (text) { return seal(current, String(text)); },
			open: function (text) { return open(current, String(text)); }
		};
	}

	Object.defineProperty(g, "__jsbridge", {
		enumerable: false,
		value: Object.freeze({
			bind: function (name, id) {
				var p = wrap(id);
				if (p === undefined) throw new TypeError("unknown object " + id);
				g[name] = p;
			},
			run: function (src) {
				return JSON.stringify(encode((0, eval)(src)));
			},
			install: function (text) {
				var o = JSON.parse(text);
				if (o.logSink) g[o.logSink] = sink(o.logSink, "", { info: "info", error: "error" });
				if (o.console) {
					g.console = sink("console", " ", { log: "info", info: "info", debug: "debug", warn: "warn", error: "error" });
				}
				if (o.crypto) crypto();
			}
		})
	});
})(globalThis)`
