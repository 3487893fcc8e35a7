package chunker

// gearTable is FastCDC's per-byte gear hash table: 256 independent 64-bit
// constants, one per possible input byte, mixed into the rolling hash as
// hash = (hash << 1) + gearTable[b]. Values are fixed and arbitrary (a
// splitmix64 stream from a constant seed) — what matters is that they are
// well-distributed and the same on every run, since the whole point of
// content-defined chunking is that identical bytes always cut in the same
// place (spec §4.3).
var gearTable = [256]uint64{
	0x66c853c930379e12, 0x1d3a88d2e4d5c04b, 0x38558538f0d0894f, 0xc8e3b14edcf325f4,
	0xf51020d72e77ecc6, 0x1c656bf5dc9a6bdf, 0xbbde04a8225e7d5c, 0xdeb07b4e1bbc9bdd,
	0x057e29f611401bf3, 0xf84613c454adb642, 0x65268db5a0396c60, 0x49208ee6a22c4e1f,
	0x97044c4ae0a69577, 0xdb8b5579b3e76622, 0x0cf2165952f842e5, 0xa6f2c1f8500e0430,
	0xc46a7a862d86f2e1, 0xb472d9bc6d100040, 0x73a19c01ae5d6981, 0x1f76a0b190a127d4,
	0x5fd0756a24fed749, 0x09e1dfcf8f6bef93, 0x50b5f7461fbce263, 0xeabcf437a87d79a1,
	0xc944168390c81da2, 0xe1129636cbe08759, 0x6635995d2d3c3c78, 0x03f409db43e2826d,
	0x01259fdd2115a414, 0x23af5d874d8aeeaf, 0xc870077f257edb69, 0x1b2fa4e7ab3ed49a,
	0xbc24bed4dbbbb7aa, 0xeb7536d788bec630, 0x847e1fabbac758b6, 0x38cc6726a3759cd6,
	0x92a1bb632186c16d, 0x47b1ae743be31edb, 0xa1423129c362d973, 0x32298b501ace40e2,
	0x3e46a0881f855fae, 0xae6d5f0c77f23ffe, 0xf14322a44860fd2b, 0xf57fc272cce78a96,
	0x914be0bc1bdc481c, 0x23e7c89e7c07ca4a, 0x54b61b4bfac2d460, 0x3b8f9da88faa9bc7,
	0x19d4cac31f23ae8d, 0xefa35337c27566e9, 0xffe7ab9af5410fec, 0x474aef41e89720be,
	0x50c3cf2b9dd79c32, 0x48fc184477321597, 0xcc6aab2630f85380, 0xabc8e21df132cb81,
	0x758bb114dbddb204, 0x506df377efcd9fb2, 0xb4e1e75ffe898efc, 0xd9521dbf50926590,
	0xfb91ab423d5bf507, 0xd26480c763d43616, 0x6c6ff60b0e1e298d, 0xcde9d2ae6b34bed7,
	0x341dd3084198f6e7, 0x706d6457a36b56af, 0x6794ce94435fad1f, 0x960aeea7f415d3dd,
	0x619076b1855237a2, 0x36d11f039d4217c1, 0xeae079485dc626e8, 0x1eb13f155f8e79ff,
	0xbff3b8ae6bfde0fe, 0x25a6d6430e729bd7, 0x4408cfe0c2a661bc, 0x6c135c6b887905fc,
	0xeb717143a45d4d1a, 0x3d15b23676bd2a4a, 0xe579c9daa431a3f1, 0xde3befe2b65cc796,
	0x5869d71c5d8f4d01, 0x94f62f3cca276684, 0xb91615204a088ceb, 0x2108cd8068a919fd,
	0x8022d7ea5298f2a3, 0xded34e56c2eaf3da, 0xf0c7aa8e5198e68e, 0x3b0c320e35da261b,
	0xee2ccb4e881f0f3c, 0x632ceb2ccc8782cc, 0x40a35e8e152cd6d9, 0xffd87a79d0569871,
	0x6faf9d59f9c07b41, 0xb125a12b6ef82a40, 0x77d30aed10611d2a, 0x07ce89a31fd1f951,
	0xcfd918be355847c4, 0xda47bb37d3393ab4, 0x6ff98ddfa92f6330, 0xace3185de66ce70b,
	0xc464e787ce8a6cde, 0x0a80e28cf0e798e1, 0x95128af4a12d49b8, 0xefc264982f3152a0,
	0xd7b81f63d8ed41a2, 0x13e17cc2ce282137, 0x352de6d290688b16, 0x2b9a1d4dd229ebdf,
	0xa9b1965eda890fb6, 0x8bf89640f0dd3be2, 0xb8c035ed7af0f3c6, 0xf5936014b6c8e792,
	0x751016b148c4903b, 0x73974eed9961c030, 0xd7338bd328ce2f9c, 0x14c4433c252eb178,
	0xfbd61f2c835628c3, 0x33e5ed7bf215c649, 0x5fbcd3cc71bb8726, 0x293b9dadb4c14619,
	0xf9b7828b567329eb, 0x131110ee4381c75d, 0xb024f15a9deac78b, 0xaa9755e248ea96e6,
	0x3cdcbddaf6d5b9e6, 0xf9031cccc7821435, 0xe09fc2bf01188162, 0xad615cb919198d7f,
	0x34ac190568483ddb, 0xc4497c6c07dd1297, 0xbe9fdc66d27c3e4c, 0x4663ca4f6af8f49d,
	0x9452b676755d0bfc, 0x0d7f76ef14a9dbb7, 0xc7aaf7d5c13411d7, 0xb6d314b7653292e3,
	0xeccc0594376576b7, 0x94b927f10d28a2cb, 0xa9a394a0ae2f07a2, 0x2e3226fd7cc1fc93,
	0x97b37dc83f5bfad8, 0x27e3915f473507b1, 0x770b2df6578f333e, 0x54247321d2e4f809,
	0x901e0732d769c5a6, 0x8ffc608ba6b7b5e7, 0x41eb11466eec44a1, 0xf293ae5862d40e13,
	0x532a10051ea7bc29, 0xe002afb21961de31, 0x5241202a978fab10, 0xd0f5a7540a8c8a99,
	0xb5bed37cf5c20637, 0x6422c35582d5934b, 0xe14e038287ebb7a7, 0x62a739bf750e6ee5,
	0xd59ad3fd98ae4c5f, 0xfc8698fc51520072, 0xfdbd7d2e6839c7a2, 0x8e5ac28504b0ae90,
	0xadf48ca91f99a23a, 0x392a4ce50b4b57ea, 0xb12d45066dd219a9, 0xea75cfff716e5073,
	0xf17c88ef310cd94d, 0xf57f13db90c5e016, 0x9dde1578820547d9, 0x981d9a008b5bf0f2,
	0xfe4f8648c1758ba4, 0xd52a9a1a1f4f1a3b, 0xb99bec09a72ef2d2, 0xb8ae3c373b9b5eeb,
	0xc32129028bdca708, 0xea98dae0e61c9c7f, 0xf25fab5528073fa5, 0x9041b998bf4839c1,
	0x837712c4ab02bc86, 0x7993651cfbb916db, 0x2e484fec81c70ae9, 0x8fddd618dae864d7,
	0x28e2a453730bed41, 0xbee1f3b0e970bb6e, 0x1688d505db7ad529, 0xbc421ab5954f6627,
	0x20e1aa1495de6ec0, 0xe6a956f2965b9f5f, 0x254bcdb001b1e38c, 0xdace8df12630e77b,
	0x59ee6c659d166bb4, 0x544d4fcd45157cd2, 0x19cdcf87fc8320c4, 0x933747ce18b01579,
	0x30cf923cb14ae425, 0x10da42494b81b0c6, 0x06c77f0ae652f3b4, 0x1d5f891b7a1ce745,
	0xdaf8decd04629577, 0x47ecf93c30e2e321, 0xf2a07f8a544b804b, 0xbee480ced7cce6d7,
	0xeeaa783cff8cacf5, 0xb450afd4477d3a2f, 0x1980fec595ca935a, 0x19b3df5807a1125b,
	0x62338093e677ca06, 0xd92b36844df68323, 0xc0987985b3763412, 0xeb2050bef21ce93d,
	0xa395c5221b24f165, 0x011c3c6b39f9d551, 0xe432cf9e10f33f3c, 0x31962279b3e2530c,
	0xad5a33be6f2a4125, 0x6877eae7bcd98114, 0x74c532b8fade2085, 0x3ee3162203fc525f,
	0x60ca72e021782986, 0x80babc5865a5f464, 0xdbcb7d8336c14b60, 0x0539c78f686a8841,
	0x5b2053a21ad2ea96, 0x94f79500bf5d2c85, 0x947ec12a002a6e9e, 0xcc6ab10e7a974f38,
	0x29b87e329a245fcb, 0x8b9b80333a35ca9c, 0x70069a2442a46c96, 0x89220d03bb0afe5f,
	0xeac0b3b9626f31d3, 0x02d18975dcda92e1, 0x528ca1d2047e64c8, 0x679bcb439cbb0645,
	0x7494ed8bac57560b, 0x345746fa30f99ff3, 0x74575dc10bb01c4f, 0x8e546db240730155,
	0x82d311230b36ebcc, 0x1e7e0e8e55ac009b, 0x8cc3e0fa465a74b5, 0x44c70c3fc2e2c4a2,
	0xd206904858e98b08, 0x1464d3a8eaaf33ce, 0x2c609aa37aba144e, 0x5cd82a7bd04e3ff9,
	0x4e72c15fde0d7bbf, 0xe1563929491cb199, 0x9902c3833d7244dc, 0x65d96898d9d71c3f,
	0xcfd9bdde23a0cfbd, 0x7f72596ae59985c6, 0x61aaae23885d067b, 0x758d425a1a783e32,
	0x386a3d8709ec925e, 0x883f25b526bf22ea, 0x00db8bfddd8cced0, 0x41f96b07f6d3c632,
}
