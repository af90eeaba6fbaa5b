/*------------------------------------------------------------------
 *
 * Package: adcbutton
 *
 * Purpose: Decode N momentary buttons wired as a single resistor ladder
 *		into one ADC channel, with debounce, "first-button locks"
 *		crossing semantics, per-button event history, and derived
 *		state (pressed flag, press and release duration, consecutive
 *		clicks). There is no separate long-press flag.
 *
 * Description:	A ladder decoder only ever changes its idea of "which
 *		button is pressed" at a ref-window crossing - voltage
 *		fluctuation while held (finger slip, a combo press sagging
 *		into a neighboring range) never changes the decoded button
 *		mid-press. This mirrors the teacher's demod state machines,
 *		which likewise only act on legitimate state transitions
 *		(DCD edges) and ignore in-band noise between them.
 *
 *------------------------------------------------------------------*/
package adcbutton
